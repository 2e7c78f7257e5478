package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"goal-auth-bridge/internal/common/logger"
)

// Client sends bot messages through the Telegram Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient authenticates the bot token against the Bot API.
func NewClient(token string) (*Client, error) {
	return NewClientWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewClientWithEndpoint is NewClient with a custom API endpoint format, e.g.
// a local Bot API server.
func NewClientWithEndpoint(token, endpoint string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to init bot api: %w", err)
	}

	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot client initialized")
	return &Client{bot: bot}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Reply sends a plain text message. The Bot API client has no context
// support, so ctx is only checked before sending.
func (c *Client) Reply(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// LazyClient connects to the Bot API on first use. A failed connection is
// retried on a later Reply, at most once per retry interval, so replies come
// back once Telegram is reachable again.
type LazyClient struct {
	token    string
	endpoint string
	retry    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	client  *Client
	lastTry time.Time
}

func NewLazyClient(token string, retry time.Duration) *LazyClient {
	return NewLazyClientWithEndpoint(token, tgbotapi.APIEndpoint, retry)
}

func NewLazyClientWithEndpoint(token, endpoint string, retry time.Duration) *LazyClient {
	return &LazyClient{token: token, endpoint: endpoint, retry: retry, now: time.Now}
}

// Client returns the connected client, connecting if needed.
func (l *LazyClient) Client() (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	now := l.now()
	if !l.lastTry.IsZero() && now.Sub(l.lastTry) < l.retry {
		return nil, fmt.Errorf("bot api unavailable, next attempt in %s", l.retry-now.Sub(l.lastTry))
	}
	l.lastTry = now

	c, err := NewClientWithEndpoint(l.token, l.endpoint)
	if err != nil {
		return nil, err
	}
	l.client = c
	return c, nil
}

func (l *LazyClient) Reply(ctx context.Context, chatID int64, text string) error {
	c, err := l.Client()
	if err != nil {
		return err
	}
	return c.Reply(ctx, chatID, text)
}
