package models

import "goal-auth-bridge/internal/domain/claim"

// LoginStatus is what a polling client sees for a bot-flow nonce.
type LoginStatus string

const (
	StatusPending  LoginStatus = "pending"
	StatusReady    LoginStatus = "ready"
	StatusExpired  LoginStatus = "expired"
	StatusNotFound LoginStatus = "not_found"
)

// InitResponse represents a freshly issued bot login link
// @Description Bot login nonce and deep links
type InitResponse struct {
	Nonce       string `json:"nonce" example:"q3Jd0m9x2c1dQ2Vh8bq1o7Zb1lqk0mQp"`
	DeepLinkApp string `json:"deep_link_app" example:"tg://resolve?domain=goals_bot&start=q3Jd0m9x2c1dQ2Vh8bq1o7Zb1lqk0mQp"`
	DeepLinkWeb string `json:"deep_link_web" example:"https://t.me/goals_bot?start=q3Jd0m9x2c1dQ2Vh8bq1o7Zb1lqk0mQp"`
}

// NonceRequest carries a bot login nonce
// @Description Bot login nonce
type NonceRequest struct {
	Nonce string `json:"nonce" binding:"required" example:"q3Jd0m9x2c1dQ2Vh8bq1o7Zb1lqk0mQp"`
}

// StatusResponse represents the state of a bot login
// @Description Bot login status
type StatusResponse struct {
	Status     LoginStatus `json:"status" example:"ready"`
	ExternalID string      `json:"external_id,omitempty" example:"42"`
}

// WebAppExchangeRequest carries raw Mini App init data
// @Description Telegram Mini App init data
type WebAppExchangeRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// WidgetProof is the field map delivered by the Telegram login widget.
type WidgetProof struct {
	Fields map[string]string
}

func (p *WidgetProof) Channel() claim.Channel { return claim.ChannelTelegramWidget }

// BotProof is a confirmed bot-flow nonce presented for exchange.
type BotProof struct {
	Nonce string
}

func (p *BotProof) Channel() claim.Channel { return claim.ChannelTelegramBot }

// WebAppProof is the signed init data of a Telegram Mini App launch.
type WebAppProof struct {
	InitData string
}

func (p *WebAppProof) Channel() claim.Channel { return claim.ChannelTelegramWebApp }
