package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/services"
	"github.com/Muab01/samVR/internal/infrastructure/middleware"
	apperrors "github.com/Muab01/samVR/pkg/errors"
	"github.com/Muab01/samVR/pkg/validation"
)

// AuthHandler issues the connection tokens the websocket handshake
// expects.
type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/guest", h.GuestToken)
		api.POST("/token", h.UserToken)
	}
	me := router.Group("/api/v1/auth", middleware.AuthMiddleware(h.authService))
	{
		me.GET("/me", h.Me)
	}
}

type guestTokenRequest struct {
	Username   string          `json:"username" binding:"required,min=3,max=50"`
	ClientType string          `json:"clientType"`
	SenderID   domain.SenderID `json:"senderId,omitempty"`
}

// GuestToken mints an anonymous connection token. Senders must bring a
// stable sender id so a reconnect re-attaches them to their camera.
func (h *AuthHandler) GuestToken(c *gin.Context) {
	var req guestTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput("invalid request format"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}
	if req.ClientType == "" {
		req.ClientType = string(domain.ClientTypeViewer)
	}
	if err := validation.ValidateClientType(req.ClientType); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}
	clientType := domain.ClientType(req.ClientType)
	if clientType == domain.ClientTypeSender && req.SenderID == "" {
		c.Error(apperrors.NewInvalidInput("senderId is required for sender clients"))
		return
	}

	token, err := h.authService.GenerateGuestToken(req.Username, clientType, req.SenderID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type userTokenRequest struct {
	UserID     domain.UserID   `json:"userId" binding:"required"`
	ClientType string          `json:"clientType"`
	SenderID   domain.SenderID `json:"senderId,omitempty"`
}

// UserToken mints a connection token for a registered user.
func (h *AuthHandler) UserToken(c *gin.Context) {
	var req userTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput("invalid request format"))
		return
	}
	if req.ClientType == "" {
		req.ClientType = string(domain.ClientTypeViewer)
	}
	if err := validation.ValidateClientType(req.ClientType); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}
	clientType := domain.ClientType(req.ClientType)
	if clientType == domain.ClientTypeSender && req.SenderID == "" {
		c.Error(apperrors.NewInvalidInput("senderId is required for sender clients"))
		return
	}

	token, err := h.authService.GenerateToken(c.Request.Context(), req.UserID, clientType, req.SenderID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me echoes the authenticated identity, resolved against the user store.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	user, err := h.authService.ResolveUser(c.Request.Context(), claims)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
