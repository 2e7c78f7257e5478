package models

import "time"

// Kind separates the ledgers of the two nonce-based login flows. A nonce of
// one kind is never accepted by the other flow.
type Kind string

const (
	KindTelegramLogin Kind = "telegram_login"
	KindWallet        Kind = "wallet"
)

func (k Kind) Valid() bool {
	return k == KindTelegramLogin || k == KindWallet
}

// Nonce is a single-use token. ConfirmerID moves from empty to set at most
// once and Used moves from false to true at most once.
type Nonce struct {
	Value         string     `json:"value"`
	Kind          Kind       `json:"kind"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ConfirmerID   string     `json:"confirmer_id,omitempty"`
	ConfirmerName string     `json:"confirmer_name,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	Used          bool       `json:"used"`
	UsedBy        string     `json:"used_by,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
}

// Expired reports whether the nonce is past its expiry at now. Stored flags
// do not matter.
func (n *Nonce) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

func (n *Nonce) Confirmed() bool {
	return n.ConfirmerID != ""
}
