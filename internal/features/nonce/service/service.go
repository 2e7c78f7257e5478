package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"goal-auth-bridge/internal/common/metrics"
	"goal-auth-bridge/internal/features/nonce/models"
	"goal-auth-bridge/internal/features/nonce/repository"
)

// 24 bytes encode to 48 hex characters. Hex fits both Telegram's start
// parameter (64 chars max) and the alphanumeric SIWE nonce grammar.
const valueBytes = 24

const maxCreateAttempts = 3

// Service issues nonces and drives their single-step transitions. It adds
// value generation, a clock and metrics on top of the ledger.
type Service struct {
	ledger repository.Ledger
	now    func() time.Time
}

func NewService(ledger repository.Ledger) *Service {
	return &Service{ledger: ledger, now: time.Now}
}

// WithClock replaces the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

// Issue creates a nonce of the given kind that expires ttl from now.
func (s *Service) Issue(ctx context.Context, kind models.Kind, ttl time.Duration) (*models.Nonce, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid nonce kind %q", kind)
	}

	var err error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		var value string
		value, err = NewValue()
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		n := &models.Nonce{
			Value:     value,
			Kind:      kind,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		err = s.ledger.Create(ctx, n)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		metrics.RecordNonceTransition(string(kind), "create", err)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, fmt.Errorf("issue nonce: %w", err)
}

func (s *Service) Get(ctx context.Context, value string) (*models.Nonce, error) {
	return s.ledger.Get(ctx, value)
}

func (s *Service) Confirm(ctx context.Context, kind models.Kind, value, confirmerID, confirmerName string) error {
	err := s.ledger.MarkConfirmed(ctx, value, confirmerID, confirmerName, s.now())
	metrics.RecordNonceTransition(string(kind), "confirm", err)
	return err
}

func (s *Service) Use(ctx context.Context, kind models.Kind, value, usedBy string) error {
	err := s.ledger.MarkUsed(ctx, value, usedBy, s.now())
	metrics.RecordNonceTransition(string(kind), "use", err)
	return err
}

// NewValue returns a fresh random nonce value.
func NewValue() (string, error) {
	b := make([]byte, valueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
