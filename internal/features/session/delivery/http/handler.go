package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/middleware"
	"goal-auth-bridge/internal/features/session/service"
)

type SessionHandler struct {
	bridge    *service.Bridge
	jwtSecret string
}

func NewSessionHandler(bridge *service.Bridge, jwtSecret string) *SessionHandler {
	return &SessionHandler{
		bridge:    bridge,
		jwtSecret: jwtSecret,
	}
}

func (h *SessionHandler) RegisterRoutes(router gin.IRouter) {
	wrap := middleware.HandleErrorWrapper()

	session := router.Group("/session")
	session.Use(middleware.RequireAccessToken(h.jwtSecret))
	{
		session.GET("/me", wrap(h.getMe))
	}
}

// @Summary Get current user
// @Description Return the application user bound to the access token subject
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AppUser "Application user"
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} middleware.ErrorResponse "No application user for the token"
// @Router /session/me [get]
func (h *SessionHandler) getMe(c *gin.Context) {
	subject, ok := middleware.AuthSubject(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("no token subject"))
		return
	}

	user, err := h.bridge.CurrentUser(c.Request.Context(), subject)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}
