package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scanwatch-service/internal/application"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/middleware"
)

// AuthHandlers handles authentication HTTP endpoints
type AuthHandlers struct {
	auth   *application.AuthService
	logger *logging.Logger
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(auth *application.AuthService, logger *logging.Logger) *AuthHandlers {
	return &AuthHandlers{
		auth:   auth,
		logger: logger,
	}
}

// RegisterRoutes registers auth routes on the API groups. The token endpoint
// takes form credentials (upstream token grant shape); the login endpoint
// takes JSON.
func (h *AuthHandlers) RegisterRoutes(v1 *gin.RouterGroup, authGroup *gin.RouterGroup) {
	v1.POST("/auth/token", h.Token)

	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.Me)
	authGroup.POST("/logout", h.Logout)
}

// Token handles POST /api/v1/auth/token (form-encoded credential proxy)
func (h *AuthHandlers) Token(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.LoginCommand
	if appErr := middleware.BindFormAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Login handles POST /api/auth/login (JSON local login)
func (h *AuthHandlers) Login(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.LoginCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.auth.LocalLogin(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Me handles GET /api/auth/me
func (h *AuthHandlers) Me(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	identity, err := h.auth.Me(c.Request.Context(), BearerToken(c))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, identity)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), BearerToken(c))
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
