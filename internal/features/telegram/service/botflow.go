package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/logger"
	"goal-auth-bridge/internal/common/validation"
	"goal-auth-bridge/internal/domain/claim"
	noncemodels "goal-auth-bridge/internal/features/nonce/models"
	noncerepo "goal-auth-bridge/internal/features/nonce/repository"
	nonceservice "goal-auth-bridge/internal/features/nonce/service"
	"goal-auth-bridge/internal/features/telegram/models"
)

const (
	replyConfirmed = "You are signed in. Return to the app to continue."
	replyStale     = "This login link is stale. Start a new sign-in from the app."
)

// Replier sends a text message to a Telegram chat.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string) error
}

// Deduper suppresses repeated webhook deliveries of one update.
type Deduper interface {
	// FirstDelivery reports whether updateID is seen for the first time.
	FirstDelivery(ctx context.Context, updateID int) (bool, error)
	// Forget drops the marker so a redelivery is processed again.
	Forget(ctx context.Context, updateID int) error
}

type BotFlowOptions struct {
	BotUsername   string
	WebhookSecret string
	TTL           time.Duration
}

// BotFlow is the deep-link confirmation login: the app shows a link, the
// user presses Start in the bot, the webhook binds the Telegram user to the
// nonce and the app exchanges the nonce for a session.
type BotFlow struct {
	nonces  *nonceservice.Service
	dedup   Deduper
	replier Replier
	opts    BotFlowOptions
}

func NewBotFlow(nonces *nonceservice.Service, dedup Deduper, replier Replier, opts BotFlowOptions) *BotFlow {
	return &BotFlow{nonces: nonces, dedup: dedup, replier: replier, opts: opts}
}

// Init issues a login nonce and the deep links that carry it.
func (f *BotFlow) Init(ctx context.Context) (*models.InitResponse, error) {
	n, err := f.nonces.Issue(ctx, noncemodels.KindTelegramLogin, f.opts.TTL)
	if err != nil {
		return nil, apperrors.NewDatabaseError("create login nonce", err)
	}

	bot := url.QueryEscape(f.opts.BotUsername)
	return &models.InitResponse{
		Nonce:       n.Value,
		DeepLinkApp: fmt.Sprintf("tg://resolve?domain=%s&start=%s", bot, n.Value),
		DeepLinkWeb: fmt.Sprintf("https://t.me/%s?start=%s", bot, n.Value),
	}, nil
}

// Status is a pure read. A consumed nonce reports expired.
func (f *BotFlow) Status(ctx context.Context, value string) (*models.StatusResponse, error) {
	if !validation.IsValidNonce(value) {
		return &models.StatusResponse{Status: models.StatusNotFound}, nil
	}
	n, err := f.nonces.Get(ctx, value)
	if errors.Is(err, noncerepo.ErrNotFound) {
		return &models.StatusResponse{Status: models.StatusNotFound}, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get login nonce", err)
	}

	switch {
	case n.Kind != noncemodels.KindTelegramLogin:
		return &models.StatusResponse{Status: models.StatusNotFound}, nil
	case n.Used, n.Expired(f.nonces.Now()):
		return &models.StatusResponse{Status: models.StatusExpired}, nil
	case n.Confirmed():
		return &models.StatusResponse{Status: models.StatusReady, ExternalID: n.ConfirmerID}, nil
	default:
		return &models.StatusResponse{Status: models.StatusPending}, nil
	}
}

// OnWebhook handles one bot update. Only "/start <nonce>" messages act on
// the ledger; everything else is acknowledged and ignored.
func (f *BotFlow) OnWebhook(ctx context.Context, secret string, update *tgbotapi.Update) error {
	if subtle.ConstantTimeCompare([]byte(secret), []byte(f.opts.WebhookSecret)) != 1 {
		return apperrors.NewUnauthorizedError("webhook secret mismatch")
	}
	if update == nil || update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	if !msg.IsCommand() || msg.Command() != "start" {
		return nil
	}
	value := strings.TrimSpace(msg.CommandArguments())
	if value == "" {
		return nil
	}
	if !validation.IsValidNonce(value) {
		f.reply(ctx, msg.Chat, replyStale)
		return nil
	}

	first, err := f.dedup.FirstDelivery(ctx, update.UpdateID)
	if err != nil {
		logger.Warn().Err(err).Int("update_id", update.UpdateID).Msg("Webhook dedup unavailable")
	} else if !first {
		logger.Debug().Int("update_id", update.UpdateID).Msg("Duplicate webhook delivery")
		return nil
	}

	confirmerID := strconv.FormatInt(msg.From.ID, 10)
	name := displayName(msg.From.FirstName, msg.From.LastName, msg.From.UserName)

	err = f.confirm(ctx, value, confirmerID, name)
	switch {
	case err == nil:
		logger.Info().Int("update_id", update.UpdateID).Str("confirmer_id", confirmerID).Msg("Login confirmed")
		f.reply(ctx, msg.Chat, replyConfirmed)
		return nil
	case isStale(err):
		logger.Info().Err(err).Int("update_id", update.UpdateID).Msg("Stale login link")
		f.reply(ctx, msg.Chat, replyStale)
		return nil
	default:
		// Let the platform redeliver: the confirm is a conditional write.
		if ferr := f.dedup.Forget(ctx, update.UpdateID); ferr != nil {
			logger.Warn().Err(ferr).Int("update_id", update.UpdateID).Msg("Failed to release webhook dedup marker")
		}
		return apperrors.NewDatabaseError("confirm login nonce", err)
	}
}

func (f *BotFlow) confirm(ctx context.Context, value, confirmerID, name string) error {
	n, err := f.nonces.Get(ctx, value)
	if err != nil {
		return err
	}
	if n.Kind != noncemodels.KindTelegramLogin {
		return noncerepo.ErrNotFound
	}
	return f.nonces.Confirm(ctx, noncemodels.KindTelegramLogin, value, confirmerID, name)
}

func (f *BotFlow) reply(ctx context.Context, chat *tgbotapi.Chat, text string) {
	if chat == nil || f.replier == nil {
		return
	}
	if err := f.replier.Reply(ctx, chat.ID, text); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to reply in bot chat")
	}
}

// Verify exchanges a confirmed nonce for a bot-flow claim. The nonce is
// consumed by a conditional write; losing the race is ALREADY_USED.
func (f *BotFlow) Verify(ctx context.Context, proof claim.Proof) (*claim.ExternalClaim, error) {
	p, ok := proof.(*models.BotProof)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "Unexpected proof type")
	}

	n, err := f.nonces.Get(ctx, p.Nonce)
	if err != nil {
		return nil, lifecycleError(err)
	}
	switch {
	case n.Kind != noncemodels.KindTelegramLogin:
		return nil, apperrors.New(apperrors.ErrCodeRevoked, "Nonce was not issued for bot login")
	case n.Expired(f.nonces.Now()):
		return nil, apperrors.New(apperrors.ErrCodeExpired, "Login link expired")
	case n.Used:
		return nil, apperrors.New(apperrors.ErrCodeAlreadyUsed, "Login already exchanged")
	case !n.Confirmed():
		return nil, apperrors.New(apperrors.ErrCodeNotReady, "Login not confirmed yet")
	}

	if err := f.nonces.Use(ctx, noncemodels.KindTelegramLogin, p.Nonce, n.ConfirmerID); err != nil {
		return nil, lifecycleError(err)
	}

	return &claim.ExternalClaim{
		Channel:     claim.ChannelTelegramBot,
		ExternalID:  n.ConfirmerID,
		DisplayName: n.ConfirmerName,
	}, nil
}

func isStale(err error) bool {
	return errors.Is(err, noncerepo.ErrNotFound) ||
		errors.Is(err, noncerepo.ErrExpired) ||
		errors.Is(err, noncerepo.ErrAlreadyConfirmed) ||
		errors.Is(err, noncerepo.ErrAlreadyUsed)
}

// lifecycleError maps ledger errors onto the API taxonomy.
func lifecycleError(err error) error {
	switch {
	case errors.Is(err, noncerepo.ErrNotFound):
		return apperrors.New(apperrors.ErrCodeNotFound, "Nonce not found")
	case errors.Is(err, noncerepo.ErrAlreadyUsed):
		return apperrors.New(apperrors.ErrCodeAlreadyUsed, "Nonce already used")
	case errors.Is(err, noncerepo.ErrExpired):
		return apperrors.New(apperrors.ErrCodeExpired, "Nonce expired")
	default:
		return apperrors.NewDatabaseError("nonce ledger", err)
	}
}
