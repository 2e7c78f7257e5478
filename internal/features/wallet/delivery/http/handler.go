package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/middleware"
	sessionservice "goal-auth-bridge/internal/features/session/service"
	"goal-auth-bridge/internal/features/wallet/models"
	"goal-auth-bridge/internal/features/wallet/service"
)

type WalletHandler struct {
	service   *service.Service
	exchanger *sessionservice.Exchanger
}

func NewWalletHandler(service *service.Service, exchanger *sessionservice.Exchanger) *WalletHandler {
	return &WalletHandler{
		service:   service,
		exchanger: exchanger,
	}
}

func (h *WalletHandler) RegisterRoutes(router gin.IRouter) {
	wrap := middleware.HandleErrorWrapper()

	router.GET("/wallet-nonce", wrap(h.nonce))
	router.POST("/wallet-verify", wrap(h.verify))
}

// @Summary Get wallet nonce
// @Description Issue a single-use nonce to embed in a Sign-In with Ethereum message
// @Tags wallet
// @Produce json
// @Success 200 {object} models.NonceResponse "Nonce"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /wallet-nonce [get]
func (h *WalletHandler) nonce(c *gin.Context) {
	resp, err := h.service.IssueNonce(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Verify wallet signature
// @Description Verify a signed SIWE message and issue a login for the wallet
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest true "Signed message"
// @Success 200 {object} models.VerifyResponse "Login token or session"
// @Failure 400 {object} middleware.ErrorResponse "Malformed message or signature"
// @Failure 401 {object} middleware.ErrorResponse "Address mismatch"
// @Failure 404 {object} middleware.ErrorResponse "Unknown nonce"
// @Failure 409 {object} middleware.ErrorResponse "Nonce already used"
// @Failure 410 {object} middleware.ErrorResponse "Nonce expired"
// @Router /wallet-verify [post]
func (h *WalletHandler) verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	cl, res, err := h.exchanger.Exchange(c.Request.Context(), &models.Proof{
		Message:   req.Message,
		Signature: req.Signature,
		Address:   req.Address,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := models.VerifyResponse{
		Email:   res.Email,
		Address: cl.ExternalID,
	}
	if res.Link != nil {
		resp.Token = res.Link.HashedToken
		resp.EmailOTP = res.Link.EmailOTP
	}
	if res.Tokens != nil {
		resp.AccessToken = res.Tokens.AccessToken
		resp.RefreshToken = res.Tokens.RefreshToken
		resp.ExpiresIn = res.Tokens.ExpiresIn
		resp.TokenType = res.Tokens.TokenType
	}
	c.JSON(http.StatusOK, resp)
}
