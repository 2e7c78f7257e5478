package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/validation"
	"goal-auth-bridge/internal/domain/claim"
	"goal-auth-bridge/internal/features/telegram/models"
)

// WidgetVerifier checks payloads of the Telegram Login Widget. The HMAC key
// is SHA256 of the bot token.
type WidgetVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewWidgetVerifier(botToken string, ttl time.Duration) *WidgetVerifier {
	sum := sha256.Sum256([]byte(botToken))
	return &WidgetVerifier{secret: sum[:], ttl: ttl, now: time.Now}
}

func (v *WidgetVerifier) WithClock(now func() time.Time) *WidgetVerifier {
	v.now = now
	return v
}

func (v *WidgetVerifier) Verify(ctx context.Context, proof claim.Proof) (*claim.ExternalClaim, error) {
	p, ok := proof.(*models.WidgetProof)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "Unexpected proof type")
	}
	fields := p.Fields

	for _, name := range []string{"hash", "auth_date", "id"} {
		if fields[name] == "" {
			return nil, apperrors.NewBadRequestError(name, "required")
		}
	}

	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil {
		return nil, apperrors.NewBadRequestError("auth_date", "must be a unix timestamp")
	}
	if v.now().Sub(time.Unix(authDate, 0)) > v.ttl {
		return nil, apperrors.New(apperrors.ErrCodeStale, "Login payload is too old")
	}

	expected := v.sign(fields)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(fields["hash"]))) {
		return nil, apperrors.New(apperrors.ErrCodeBadSignature, "Login payload signature mismatch")
	}

	proofFields := map[string]string{"auth_date": fields["auth_date"]}
	if u := fields["username"]; u != "" {
		proofFields["username"] = u
	}
	return &claim.ExternalClaim{
		Channel:     claim.ChannelTelegramWidget,
		ExternalID:  fields["id"],
		DisplayName: displayName(fields["first_name"], fields["last_name"], fields["username"]),
		Proof:       proofFields,
	}, nil
}

// sign returns the hex HMAC of the data-check-string: every field but hash
// as key=value, sorted by key, joined by newlines.
func (v *WidgetVerifier) sign(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func displayName(first, last, username string) string {
	name := validation.TruncateName(first + " " + last)
	if name == "" {
		return username
	}
	return name
}
