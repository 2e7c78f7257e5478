package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/logger"
	"goal-auth-bridge/internal/common/middleware"
	"goal-auth-bridge/internal/domain/claim"
	sessionmodels "goal-auth-bridge/internal/features/session/models"
	sessionservice "goal-auth-bridge/internal/features/session/service"
	"goal-auth-bridge/internal/features/telegram/models"
	"goal-auth-bridge/internal/features/telegram/service"
)

// SecretTokenHeader carries the secret_token registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type TelegramHandler struct {
	flow      *service.BotFlow
	exchanger *sessionservice.Exchanger
}

func NewTelegramHandler(flow *service.BotFlow, exchanger *sessionservice.Exchanger) *TelegramHandler {
	return &TelegramHandler{
		flow:      flow,
		exchanger: exchanger,
	}
}

func (h *TelegramHandler) RegisterRoutes(router gin.IRouter) {
	wrap := middleware.HandleErrorWrapper()

	router.POST("/tg-login-init", wrap(h.loginInit))
	router.POST("/tg-login-status", wrap(h.loginStatus))
	router.POST("/tg-bot-webhook", wrap(h.webhook))
	router.POST("/tg-exchange", wrap(h.exchange))
	router.POST("/widget-exchange", wrap(h.widgetExchange))
	router.POST("/webapp-exchange", wrap(h.webAppExchange))
}

// @Summary Start bot login
// @Description Issue a bot login nonce and the deep links that open the bot with it
// @Tags telegram
// @Produce json
// @Success 201 {object} models.InitResponse "Nonce and deep links"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /tg-login-init [post]
func (h *TelegramHandler) loginInit(c *gin.Context) {
	resp, err := h.flow.Init(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Poll bot login
// @Description Report whether the bot confirmed the nonce
// @Tags telegram
// @Accept json
// @Produce json
// @Param request body models.NonceRequest true "Bot login nonce"
// @Success 200 {object} models.StatusResponse "Login status"
// @Failure 400 {object} middleware.ErrorResponse "Invalid request"
// @Router /tg-login-status [post]
func (h *TelegramHandler) loginStatus(c *gin.Context) {
	var req models.NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	resp, err := h.flow.Status(c.Request.Context(), req.Nonce)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Telegram webhook
// @Description Receives bot updates; a /start message carrying a nonce confirms the login
// @Tags telegram
// @Accept json
// @Produce plain
// @Param X-Telegram-Bot-Api-Secret-Token header string true "Webhook secret"
// @Success 200 {string} string "ok"
// @Failure 401 {object} middleware.ErrorResponse "Wrong secret"
// @Router /tg-bot-webhook [post]
func (h *TelegramHandler) webhook(c *gin.Context) {
	update := &tgbotapi.Update{}
	if err := json.NewDecoder(c.Request.Body).Decode(update); err != nil {
		// Telegram retries anything but 2xx; an update we cannot read is acknowledged.
		logger.Warn().Err(err).Msg("Undecodable webhook update")
		update = nil
	}

	if err := h.flow.OnWebhook(c.Request.Context(), c.GetHeader(SecretTokenHeader), update); err != nil {
		_ = c.Error(err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// @Summary Exchange bot login
// @Description Exchange a confirmed bot login nonce for a session
// @Tags telegram
// @Accept json
// @Produce json
// @Param request body models.NonceRequest true "Bot login nonce"
// @Success 200 {object} sessionmodels.ExchangeResponse "Session"
// @Failure 404 {object} middleware.ErrorResponse "Unknown nonce"
// @Failure 409 {object} middleware.ErrorResponse "Not confirmed yet or already used"
// @Failure 410 {object} middleware.ErrorResponse "Nonce expired"
// @Failure 500 {object} middleware.ErrorResponse "Auth backend failure"
// @Router /tg-exchange [post]
func (h *TelegramHandler) exchange(c *gin.Context) {
	var req models.NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}
	h.issue(c, &models.BotProof{Nonce: req.Nonce})
}

// @Summary Exchange login widget data
// @Description Verify the fields delivered by the Telegram login widget and issue a session
// @Tags telegram
// @Accept json
// @Produce json
// @Param request body object true "Widget auth fields (id, first_name, auth_date, hash, ...)"
// @Success 200 {object} sessionmodels.ExchangeResponse "Session"
// @Failure 400 {object} middleware.ErrorResponse "Missing fields"
// @Failure 401 {object} middleware.ErrorResponse "Bad signature or stale data"
// @Router /widget-exchange [post]
func (h *TelegramHandler) widgetExchange(c *gin.Context) {
	fields, err := decodeFields(c)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}
	h.issue(c, &models.WidgetProof{Fields: fields})
}

// @Summary Exchange Mini App init data
// @Description Validate Telegram Mini App init data and issue a session
// @Tags telegram
// @Accept json
// @Produce json
// @Param request body models.WebAppExchangeRequest true "Raw init data"
// @Success 200 {object} sessionmodels.ExchangeResponse "Session"
// @Failure 401 {object} middleware.ErrorResponse "Bad signature or stale data"
// @Router /webapp-exchange [post]
func (h *TelegramHandler) webAppExchange(c *gin.Context) {
	var req models.WebAppExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}
	h.issue(c, &models.WebAppProof{InitData: req.InitData})
}

func (h *TelegramHandler) issue(c *gin.Context, proof claim.Proof) {
	_, res, err := h.exchanger.Exchange(c.Request.Context(), proof)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sessionmodels.NewExchangeResponse(res))
}

// decodeFields reads a flat JSON object and renders every value the way it
// appeared on the wire, so numeric ids hash exactly as Telegram signed them.
func decodeFields(c *gin.Context) (map[string]string, error) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("field %q must be a scalar", k)
		}
	}
	return fields, nil
}
