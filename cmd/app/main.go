package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "goal-auth-bridge/docs"
	"goal-auth-bridge/internal/common/config"
	"goal-auth-bridge/internal/common/logger"
	"goal-auth-bridge/internal/common/metrics"
	"goal-auth-bridge/internal/common/middleware"
	"goal-auth-bridge/internal/domain/claim"
	nonceRepo "goal-auth-bridge/internal/features/nonce/repository"
	nonceRepoPostgres "goal-auth-bridge/internal/features/nonce/repository/postgres"
	nonceRepoRedis "goal-auth-bridge/internal/features/nonce/repository/redis"
	nonceService "goal-auth-bridge/internal/features/nonce/service"
	sessionHTTP "goal-auth-bridge/internal/features/session/delivery/http"
	sessionRepo "goal-auth-bridge/internal/features/session/repository/postgres"
	sessionService "goal-auth-bridge/internal/features/session/service"
	telegramHTTP "goal-auth-bridge/internal/features/telegram/delivery/http"
	telegramRepo "goal-auth-bridge/internal/features/telegram/repository/redis"
	telegramService "goal-auth-bridge/internal/features/telegram/service"
	walletHTTP "goal-auth-bridge/internal/features/wallet/delivery/http"
	walletService "goal-auth-bridge/internal/features/wallet/service"
	"goal-auth-bridge/internal/platform/postgres"
	"goal-auth-bridge/internal/platform/redis"
	"goal-auth-bridge/internal/platform/supabase"
	"goal-auth-bridge/internal/platform/telegram"
)

const serviceName = "goal-auth-bridge"

// @title           Goals Auth Bridge API
// @version         1.0
// @description     Exchanges Telegram and Ethereum wallet identity proofs for auth backend sessions.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Backend access token, "Bearer <token>"

// @tag.name telegram
// @tag.description Telegram login: widget, bot deep link and Mini App

// @tag.name wallet
// @tag.description Sign-In with Ethereum

// @tag.name session
// @tag.description Session introspection

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	logger.Init(serviceName, cfg.Debug)
	logger.Info().
		Str("version", "1.0.0").
		Bool("debug", cfg.Debug).
		Str("nonce_store", cfg.Nonce.Store).
		Msg("Starting auth bridge")

	// Инициализируем базу данных
	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(postgresClient.GetDB()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Инициализируем Redis
	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := redis.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Инициализируем хранилище nonce
	var ledger nonceRepo.Ledger
	var janitor *nonceService.Janitor
	switch cfg.Nonce.Store {
	case config.NonceStoreRedis:
		ledger = nonceRepoRedis.NewRepository(redisClient.Client, cfg.Nonce.Retention)
	default:
		ledger = nonceRepoPostgres.NewPostgresRepository(postgresClient.GetDB())
		janitor = nonceService.NewJanitor(ledger, cfg.Nonce.SweepInterval, cfg.Nonce.Retention)
	}
	nonces := nonceService.NewService(ledger)

	// Инициализируем внешние клиенты
	backend, err := supabase.New(supabase.Config{
		URL:        cfg.Auth.SupabaseURL,
		APIKey:     cfg.Auth.ServiceRoleKey,
		HTTPClient: &http.Client{Timeout: cfg.Auth.CallTimeout},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to init auth backend client")
	}

	replier := telegram.NewLazyClient(cfg.Telegram.BotToken, 30*time.Second)
	if bot, err := replier.Client(); err != nil {
		logger.Warn().Err(err).Msg("Telegram Bot API unavailable, will retry on next reply")
	} else if bot.Username() != cfg.Telegram.BotUsername {
		logger.Warn().
			Str("configured", cfg.Telegram.BotUsername).
			Str("actual", bot.Username()).
			Msg("TELEGRAM_BOT_USERNAME does not match the bot token")
	}

	// Инициализируем сервисы
	botFlow := telegramService.NewBotFlow(nonces, telegramRepo.NewUpdateDeduper(redisClient.Client, cfg.Telegram.DedupTTL), replier,
		telegramService.BotFlowOptions{
			BotUsername:   cfg.Telegram.BotUsername,
			WebhookSecret: cfg.Telegram.WebhookSecret,
			TTL:           cfg.Telegram.LoginTTL,
		})
	wallet := walletService.NewService(nonces, cfg.Wallet.NonceTTL, cfg.Wallet.Domain)

	registry := claim.NewRegistry()
	registry.Register(claim.ChannelTelegramWidget, telegramService.NewWidgetVerifier(cfg.Telegram.BotToken, cfg.Telegram.WidgetTTL))
	registry.Register(claim.ChannelTelegramBot, botFlow)
	registry.Register(claim.ChannelTelegramWebApp, telegramService.NewWebAppVerifier(cfg.Telegram.BotToken, cfg.Telegram.WebAppTTL))
	registry.Register(claim.ChannelWallet, wallet)

	bridge := sessionService.NewBridge(backend, sessionRepo.NewPostgresRepository(postgresClient.GetDB()),
		sessionService.OptionsFromConfig(cfg))
	exchanger := sessionService.NewExchanger(registry, bridge)

	logger.Info().Msg("Services initialized")

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())
	router.Use(middleware.ErrorHandler())

	// Настраиваем CORS
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.Origins) == 1 && cfg.Server.Origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.Origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Настраиваем роуты
	telegramHTTP.NewTelegramHandler(botFlow, exchanger).RegisterRoutes(router)
	walletHTTP.NewWalletHandler(wallet, exchanger).RegisterRoutes(router)
	sessionHTTP.NewSessionHandler(bridge, cfg.Auth.JWTSecret).RegisterRoutes(router)
	setupProbes(router, postgresClient, redisClient)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	logger.Info().Msg("Routes configured")

	if janitor != nil {
		janitor.Start()
	}

	// Создаем HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Ждем сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if janitor != nil {
		janitor.Stop()
	}

	logger.Info().Msg("Server exited")
}

func setupProbes(router *gin.Engine, postgresClient *postgres.Client, redisClient *redis.Client) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	// Liveness probe
	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Readiness probe
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Проверка Postgres
		if err := postgresClient.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "postgres unavailable",
				"details": err.Error(),
			})
			return
		}

		// Проверка Redis
		if err := redisClient.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
}
