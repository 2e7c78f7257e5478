package service

import (
	"context"
	"sync"
	"time"

	"goal-auth-bridge/internal/common/logger"
	"goal-auth-bridge/internal/features/nonce/repository"
)

// Janitor periodically deletes nonces that expired longer than retention
// ago. Correctness never depends on it.
type Janitor struct {
	ledger    repository.Ledger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJanitor(ledger repository.Ledger, interval, retention time.Duration) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		ledger:    ledger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (j *Janitor) Start() {
	logger.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("Starting nonce janitor")
	j.wg.Add(1)

	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.Sweep(j.ctx)
			case <-j.ctx.Done():
				return
			}
		}
	}()
}

func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
	logger.Info().Msg("Nonce janitor stopped")
}

// Sweep runs one deletion pass and returns the number of removed nonces.
func (j *Janitor) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := j.ledger.DeleteExpired(ctx, j.now().Add(-j.retention))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to sweep expired nonces")
		return 0
	}
	if deleted > 0 {
		logger.Debug().Int64("deleted", deleted).Msg("Swept expired nonces")
	}
	return deleted
}
