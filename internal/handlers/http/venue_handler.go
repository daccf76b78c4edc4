package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
	"github.com/Muab01/samVR/internal/core/services"
	"github.com/Muab01/samVR/internal/core/venue"
	"github.com/Muab01/samVR/internal/infrastructure/middleware"
	apperrors "github.com/Muab01/samVR/pkg/errors"
	"github.com/Muab01/samVR/pkg/validation"
)

// VenueHandler is the REST admin surface for venue and camera records.
// Live session operations go over the websocket; this API serves
// dashboards and provisioning tools.
type VenueHandler struct {
	registry    *venue.Registry
	cameraRepo  ports.CameraRepository
	authService services.AuthService
}

func NewVenueHandler(registry *venue.Registry, cameraRepo ports.CameraRepository, authService services.AuthService) *VenueHandler {
	return &VenueHandler{
		registry:    registry,
		cameraRepo:  cameraRepo,
		authService: authService,
	}
}

func (h *VenueHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1", middleware.AuthMiddleware(h.authService))
	{
		api.GET("/venues", h.ListVenues)
		api.POST("/venues", h.CreateVenue)
		api.GET("/venues/:id", h.GetVenue)
		api.PATCH("/venues/:id", h.UpdateVenue)
		api.DELETE("/venues/:id", h.DeleteVenue)
		api.GET("/venues/:id/cameras", h.ListCameras)
	}
	admin := router.Group("/api/v1/admin",
		middleware.AuthMiddleware(h.authService),
		middleware.RequireRole(h.authService, domain.RoleModerator),
	)
	{
		admin.GET("/venues/loaded", h.LoadedVenues)
	}
}

// asHTTPError maps domain sentinels onto the REST error taxonomy.
func asHTTPError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrVenueNotFound),
		errors.Is(err, domain.ErrCameraNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrUnauthorized):
		return apperrors.Wrap(err, apperrors.ErrCodeForbidden, "insufficient permissions", http.StatusForbidden)
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrExpiredToken):
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, err.Error(), http.StatusUnauthorized)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "internal error", http.StatusInternalServerError)
	}
}

func (h *VenueHandler) requester(c *gin.Context) (*domain.UserRecord, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return nil, false
	}
	user, err := h.authService.ResolveUser(c.Request.Context(), claims)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (h *VenueHandler) ListVenues(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	summaries, err := h.registry.ListVenues(c.Request.Context(), user)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"venues": summaries})
}

func (h *VenueHandler) CreateVenue(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,min=1,max=100"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput("invalid request format"))
		return
	}
	if err := validation.ValidateVenueName(req.Name); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}

	user, ok := h.requester(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	claims, _ := middleware.ClaimsFromContext(c)
	if err := h.authService.RequireRole(claims, domain.RoleUser); err != nil {
		c.Error(asHTTPError(err))
		return
	}

	record, err := h.registry.CreateVenue(c.Request.Context(), user.UserID, req.Name)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"venue": record})
}

func (h *VenueHandler) GetVenue(c *gin.Context) {
	venueID := domain.VenueID(c.Param("id"))
	record, err := h.registry.GetVenueRecord(c.Request.Context(), venueID)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	user, ok := h.requester(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	if record.Visibility != domain.VisibilityPublic &&
		record.OwnerUserID != user.UserID &&
		!domain.HasAtLeastSecurityLevel(user.Role, domain.RoleModerator) {
		c.Error(apperrors.NewForbidden("venue is not visible to you"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"venue": record})
}

func (h *VenueHandler) UpdateVenue(c *gin.Context) {
	venueID := domain.VenueID(c.Param("id"))
	var req struct {
		Name       *string                 `json:"name,omitempty"`
		Visibility *domain.VenueVisibility `json:"visibility,omitempty"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput("invalid request format"))
		return
	}

	record, err := h.registry.GetVenueRecord(c.Request.Context(), venueID)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	user, ok := h.requester(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	if record.OwnerUserID != user.UserID &&
		!domain.HasAtLeastSecurityLevel(user.Role, domain.RoleModerator) {
		c.Error(apperrors.NewForbidden("only the owner or a moderator may edit a venue"))
		return
	}

	if req.Name != nil {
		if err := validation.ValidateVenueName(*req.Name); err != nil {
			c.Error(apperrors.NewInvalidInput(err.Error()))
			return
		}
		record.Name = *req.Name
	}
	if req.Visibility != nil {
		record.Visibility = *req.Visibility
	}
	if err := h.registry.UpdateVenueRecord(c.Request.Context(), record); err != nil {
		c.Error(asHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"venue": record})
}

func (h *VenueHandler) DeleteVenue(c *gin.Context) {
	venueID := domain.VenueID(c.Param("id"))
	record, err := h.registry.GetVenueRecord(c.Request.Context(), venueID)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	user, ok := h.requester(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	if record.OwnerUserID != user.UserID &&
		!domain.HasAtLeastSecurityLevel(user.Role, domain.RoleAdmin) {
		c.Error(apperrors.NewForbidden("only the owner or an admin may delete a venue"))
		return
	}
	if err := h.registry.DeleteVenue(c.Request.Context(), venueID); err != nil {
		c.Error(asHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *VenueHandler) ListCameras(c *gin.Context) {
	venueID := domain.VenueID(c.Param("id"))
	record, err := h.registry.GetVenueRecord(c.Request.Context(), venueID)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	user, ok := h.requester(c)
	if !ok {
		c.Error(apperrors.NewUnauthorized("authentication required"))
		return
	}
	if record.OwnerUserID != user.UserID &&
		!domain.HasAtLeastSecurityLevel(user.Role, domain.RoleModerator) {
		c.Error(apperrors.NewForbidden("only the owner or a moderator may inspect cameras"))
		return
	}
	cameras, err := h.cameraRepo.ListCamerasForVenue(c.Request.Context(), venueID)
	if err != nil {
		c.Error(asHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cameras})
}

// LoadedVenues reports the venues currently held in memory, for
// operations dashboards.
func (h *VenueHandler) LoadedVenues(c *gin.Context) {
	loaded := h.registry.LoadedVenues()
	out := make([]gin.H, 0, len(loaded))
	for _, v := range loaded {
		record := v.Record()
		out = append(out, gin.H{
			"venueId":     record.VenueID,
			"name":        record.Name,
			"clientCount": v.ClientCount(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"venues": out})
}
