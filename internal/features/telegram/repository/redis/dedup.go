package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefixUpdate = "tg_update:"

type UpdateDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewUpdateDeduper(client redis.UniversalClient, ttl time.Duration) *UpdateDeduper {
	return &UpdateDeduper{client: client, ttl: ttl}
}

func (d *UpdateDeduper) FirstDelivery(ctx context.Context, updateID int) (bool, error) {
	ok, err := d.client.SetNX(ctx, key(updateID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark update: %w", err)
	}
	return ok, nil
}

func (d *UpdateDeduper) Forget(ctx context.Context, updateID int) error {
	return d.client.Del(ctx, key(updateID)).Err()
}

func key(updateID int) string {
	return keyPrefixUpdate + strconv.Itoa(updateID)
}
