package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"goal-auth-bridge/internal/features/nonce/models"
	"goal-auth-bridge/internal/features/nonce/repository"
)

const keyPrefixNonce = "auth_nonce:"

// Script results. Positive means the write happened.
const (
	resultOK               = 1
	resultNotFound         = -1
	resultExpired          = -2
	resultAlreadyConfirmed = -3
	resultAlreadyUsed      = -4
	resultDuplicate        = -5
)

var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return -5
end
redis.call('HSET', KEYS[1], 'kind', ARGV[1], 'created_at', ARGV[2], 'expires_at', ARGV[3], 'used', '0')
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

var confirmScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local f = redis.call('HMGET', KEYS[1], 'expires_at', 'confirmer_id', 'used')
if tonumber(ARGV[1]) >= tonumber(f[1]) then
	return -2
end
if f[3] == '1' then
	return -4
end
if f[2] and f[2] ~= '' then
	return -3
end
redis.call('HSET', KEYS[1], 'confirmer_id', ARGV[2], 'confirmer_name', ARGV[3], 'confirmed_at', ARGV[1])
return 1
`)

var useScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local f = redis.call('HMGET', KEYS[1], 'expires_at', 'used')
if f[2] == '1' then
	return -4
end
if tonumber(ARGV[1]) >= tonumber(f[1]) then
	return -2
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_by', ARGV[2], 'used_at', ARGV[1])
return 1
`)

type Repository struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRepository returns a ledger keeping one hash per nonce. Keys outlive
// the nonce expiry by retention so late lookups still see the final state.
func NewRepository(client redis.UniversalClient, retention time.Duration) repository.Ledger {
	return &Repository{client: client, retention: retention}
}

func (r *Repository) Create(ctx context.Context, n *models.Nonce) error {
	ttl := time.Until(n.ExpiresAt) + r.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	res, err := createScript.Run(ctx, r.client, []string{key(n.Value)},
		string(n.Kind), n.CreatedAt.UnixMilli(), n.ExpiresAt.UnixMilli(), ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to create nonce: %w", err)
	}
	return resultErr(res)
}

func (r *Repository) Get(ctx context.Context, value string) (*models.Nonce, error) {
	fields, err := r.client.HGetAll(ctx, key(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}

	n := &models.Nonce{
		Value:         value,
		Kind:          models.Kind(fields["kind"]),
		ConfirmerID:   fields["confirmer_id"],
		ConfirmerName: fields["confirmer_name"],
		Used:          fields["used"] == "1",
		UsedBy:        fields["used_by"],
	}
	if n.CreatedAt, err = millis(fields, "created_at"); err != nil {
		return nil, err
	}
	if n.ExpiresAt, err = millis(fields, "expires_at"); err != nil {
		return nil, err
	}
	if _, ok := fields["confirmed_at"]; ok {
		t, err := millis(fields, "confirmed_at")
		if err != nil {
			return nil, err
		}
		n.ConfirmedAt = &t
	}
	if _, ok := fields["used_at"]; ok {
		t, err := millis(fields, "used_at")
		if err != nil {
			return nil, err
		}
		n.UsedAt = &t
	}
	return n, nil
}

func (r *Repository) MarkConfirmed(ctx context.Context, value, confirmerID, confirmerName string, now time.Time) error {
	res, err := confirmScript.Run(ctx, r.client, []string{key(value)},
		now.UnixMilli(), confirmerID, confirmerName).Int()
	if err != nil {
		return fmt.Errorf("failed to confirm nonce: %w", err)
	}
	return resultErr(res)
}

func (r *Repository) MarkUsed(ctx context.Context, value, usedBy string, now time.Time) error {
	res, err := useScript.Run(ctx, r.client, []string{key(value)}, now.UnixMilli(), usedBy).Int()
	if err != nil {
		return fmt.Errorf("failed to use nonce: %w", err)
	}
	return resultErr(res)
}

// DeleteExpired is a no-op: key TTLs already evict old nonces.
func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func key(value string) string {
	return keyPrefixNonce + value
}

// millis reads a unix-millisecond field of the nonce hash.
func millis(fields map[string]string, name string) (time.Time, error) {
	ms, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt nonce field %s: %w", name, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func resultErr(res int) error {
	switch res {
	case resultOK:
		return nil
	case resultNotFound:
		return repository.ErrNotFound
	case resultExpired:
		return repository.ErrExpired
	case resultAlreadyConfirmed:
		return repository.ErrAlreadyConfirmed
	case resultAlreadyUsed:
		return repository.ErrAlreadyUsed
	case resultDuplicate:
		return repository.ErrDuplicate
	default:
		return fmt.Errorf("unexpected script result %d", res)
	}
}
