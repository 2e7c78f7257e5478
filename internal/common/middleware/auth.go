package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"goal-auth-bridge/internal/common/errors"
)

const authSubjectKey = "auth_subject"

// RequireAccessToken validates an HS256 bearer token issued by the auth
// backend and stores its subject (the backend auth id) in the context.
func RequireAccessToken(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" || len(key) == 0 {
			sendErrorResponse(c, errors.NewUnauthorizedError("bearer token required"))
			c.Abort()
			return
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			sendErrorResponse(c, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid access token"))
			c.Abort()
			return
		}
		if claims.Subject == "" {
			sendErrorResponse(c, errors.NewUnauthorizedError("token has no subject"))
			c.Abort()
			return
		}

		c.Set(authSubjectKey, claims.Subject)
		c.Next()
	}
}

// AuthSubject returns the subject stored by RequireAccessToken.
func AuthSubject(c *gin.Context) (string, bool) {
	v, ok := c.Get(authSubjectKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
