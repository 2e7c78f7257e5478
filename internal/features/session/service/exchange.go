package service

import (
	"context"

	"goal-auth-bridge/internal/common/metrics"
	"goal-auth-bridge/internal/domain/claim"
	"goal-auth-bridge/internal/features/session/models"
)

// Exchanger turns a channel proof into a session: the registry verifies
// the proof and the bridge issues the session for the resulting claim.
type Exchanger struct {
	registry *claim.Registry
	bridge   *Bridge
}

func NewExchanger(registry *claim.Registry, bridge *Bridge) *Exchanger {
	return &Exchanger{registry: registry, bridge: bridge}
}

func (e *Exchanger) Exchange(ctx context.Context, proof claim.Proof) (*claim.ExternalClaim, *models.IssueResult, error) {
	c, err := e.registry.Verify(ctx, proof)
	if err != nil {
		metrics.RecordClaim(string(proof.Channel()), err)
		return nil, nil, err
	}

	res, err := e.bridge.Issue(ctx, c)
	metrics.RecordClaim(string(proof.Channel()), err)
	if err != nil {
		return nil, nil, err
	}
	return c, res, nil
}

// Bridge exposes the underlying bridge for read paths such as /session/me.
func (e *Exchanger) Bridge() *Bridge {
	return e.bridge
}
