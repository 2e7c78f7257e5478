package models

import (
	"time"

	"goal-auth-bridge/internal/domain/claim"
)

// NonceResponse represents a wallet sign-in nonce
// @Description Wallet sign-in nonce
type NonceResponse struct {
	Nonce     string    `json:"nonce" example:"Zk3q0d9mXc2b1Vh8bq1o7Zb1lqk0mQpA"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyRequest represents a signed SIWE message
// @Description Signed Sign-In with Ethereum message
type VerifyRequest struct {
	Address   string `json:"address" binding:"required" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required" example:"0x5f1c...1b"`
}

// VerifyResponse carries either a one-time login token for the client to
// redeem or, with server-side redemption, the session tokens as well.
// @Description Wallet login result
type VerifyResponse struct {
	Email        string `json:"email" example:"wallet-0x71c7656ec7ab88b098defb751b7401b5f6d8976f@users.goals.internal"`
	Token        string `json:"token,omitempty"`
	EmailOTP     string `json:"email_otp,omitempty" example:"123456"`
	Address      string `json:"address" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// SiweMessage holds the fields of an EIP-4361 message the verifier uses.
type SiweMessage struct {
	Domain         string
	Address        string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       *time.Time
	ExpirationTime *time.Time
	NotBefore      *time.Time
}

// Proof is a signed message presented by a wallet.
type Proof struct {
	Message   string
	Signature string
	Address   string
}

func (p *Proof) Channel() claim.Channel { return claim.ChannelWallet }
