package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/domain/claim"
	"goal-auth-bridge/internal/features/telegram/models"
)

// WebAppVerifier checks init data of a Telegram Mini App launch.
type WebAppVerifier struct {
	botToken string
	ttl      time.Duration
}

func NewWebAppVerifier(botToken string, ttl time.Duration) *WebAppVerifier {
	return &WebAppVerifier{botToken: botToken, ttl: ttl}
}

func (v *WebAppVerifier) Verify(ctx context.Context, proof claim.Proof) (*claim.ExternalClaim, error) {
	p, ok := proof.(*models.WebAppProof)
	if !ok || p.InitData == "" {
		return nil, apperrors.NewBadRequestError("init_data", "required")
	}

	if err := initdata.Validate(p.InitData, v.botToken, v.ttl); err != nil {
		if errors.Is(err, initdata.ErrExpired) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeStale, "Init data is too old")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBadSignature, "Init data signature mismatch")
	}

	data, err := initdata.Parse(p.InitData)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Malformed init data")
	}
	if data.User.ID == 0 {
		return nil, apperrors.NewBadRequestError("init_data", "no user")
	}

	return &claim.ExternalClaim{
		Channel:     claim.ChannelTelegramWebApp,
		ExternalID:  strconv.FormatInt(data.User.ID, 10),
		DisplayName: displayName(data.User.FirstName, data.User.LastName, data.User.Username),
		Proof: map[string]string{
			"username":   data.User.Username,
			"is_premium": strconv.FormatBool(data.User.IsPremium),
		},
	}, nil
}
