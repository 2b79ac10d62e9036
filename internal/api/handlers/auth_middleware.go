package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scanwatch-service/internal/application"
	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/errors"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/middleware"
)

// Context key for the resolved session
const contextKeySession = "scanwatchSession"

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireSession resolves the bearer token into a session and aborts with 401
// when there is none. The resolved session and identity land in the gin
// context and the request context for downstream handlers and logging.
func RequireSession(auth *application.AuthService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("missing bearer token"))
			return
		}

		session, err := auth.Resolve(c.Request.Context(), token)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.Set(contextKeySession, session)
		c.Set(middleware.ContextKeyIdentity, session.Identity)
		c.Request = c.Request.WithContext(
			logging.ContextWithIdentity(c.Request.Context(), session.Identity),
		)

		c.Next()
	}
}

// SessionFromContext returns the session resolved by RequireSession.
func SessionFromContext(c *gin.Context) (domain.Session, bool) {
	val, exists := c.Get(contextKeySession)
	if !exists {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}
