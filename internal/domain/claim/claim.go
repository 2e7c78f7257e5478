// Package claim defines the provider-neutral identity claim produced by every
// login channel and the verifier contract that produces it.
package claim

import (
	"context"
	"fmt"
)

type Channel string

const (
	ChannelTelegramWidget Channel = "telegram-widget"
	ChannelTelegramBot    Channel = "telegram-bot"
	ChannelTelegramWebApp Channel = "telegram-webapp"
	ChannelWallet         Channel = "wallet"
)

// Login namespaces. Every Telegram channel shares one keyspace so a Telegram
// account maps to the same application user whichever way it signed in.
const (
	NamespaceTelegram = "telegram"
	NamespaceWallet   = "wallet"
)

func (c Channel) Namespace() string {
	switch c {
	case ChannelTelegramWidget, ChannelTelegramBot, ChannelTelegramWebApp:
		return NamespaceTelegram
	case ChannelWallet:
		return NamespaceWallet
	default:
		return string(c)
	}
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelTelegramWidget, ChannelTelegramBot, ChannelTelegramWebApp, ChannelWallet:
		return true
	}
	return false
}

// ExternalClaim is a verified assertion that the caller controls an identity
// on an external channel. It lives only for the duration of one request.
type ExternalClaim struct {
	Channel     Channel
	ExternalID  string
	DisplayName string
	Proof       map[string]string
}

func (c *ExternalClaim) Validate() error {
	if c == nil {
		return fmt.Errorf("nil claim")
	}
	if !c.Channel.Valid() {
		return fmt.Errorf("unknown channel %q", c.Channel)
	}
	if c.ExternalID == "" {
		return fmt.Errorf("empty external id")
	}
	return nil
}

// Proof is the raw, unverified evidence a client presents for one channel.
type Proof interface {
	Channel() Channel
}

// Verifier turns a proof into a claim or rejects it.
type Verifier interface {
	Verify(ctx context.Context, proof Proof) (*ExternalClaim, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, proof Proof) (*ExternalClaim, error)

func (f VerifierFunc) Verify(ctx context.Context, proof Proof) (*ExternalClaim, error) {
	return f(ctx, proof)
}

// Registry dispatches proofs to the verifier registered for their channel.
type Registry struct {
	verifiers map[Channel]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[Channel]Verifier)}
}

func (r *Registry) Register(ch Channel, v Verifier) {
	r.verifiers[ch] = v
}

func (r *Registry) Verify(ctx context.Context, proof Proof) (*ExternalClaim, error) {
	if proof == nil {
		return nil, fmt.Errorf("nil proof")
	}
	v, ok := r.verifiers[proof.Channel()]
	if !ok {
		return nil, fmt.Errorf("no verifier for channel %q", proof.Channel())
	}
	c, err := v.Verify(ctx, proof)
	if err != nil {
		return nil, err
	}
	if c.Channel != proof.Channel() {
		return nil, fmt.Errorf("verifier for %q produced a %q claim", proof.Channel(), c.Channel)
	}
	return c, c.Validate()
}
