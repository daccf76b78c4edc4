package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/services"
	"github.com/Muab01/samVR/internal/core/venue"
	"github.com/Muab01/samVR/internal/infrastructure/middleware"
	"github.com/Muab01/samVR/internal/infrastructure/repositories/memory"
)

type apiHarness struct {
	router *gin.Engine
	auth   services.AuthService
	users  *memory.UserRepository
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	users := memory.NewUserRepository()
	auth := services.NewAuthService("api-test-secret", time.Hour, users)
	cameraRepo := memory.NewCameraRepository()
	registry := venue.NewRegistry(venue.RegistryConfig{
		Engine:                 nil,
		VenueRepo:              memory.NewVenueRepository(),
		CameraRepo:             cameraRepo,
		Logger:                 log,
		TransformFlushInterval: 20 * time.Millisecond,
	})

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	NewAuthHandler(auth).SetupRoutes(router)
	NewVenueHandler(registry, cameraRepo, auth).SetupRoutes(router)

	return &apiHarness{router: router, auth: auth, users: users}
}

func (h *apiHarness) token(t *testing.T, user domain.UserRecord) string {
	t.Helper()
	h.users.PutUser(user)
	token, err := h.auth.GenerateToken(t.Context(), user.UserID, domain.ClientTypeViewer, "")
	require.NoError(t, err)
	return token
}

func (h *apiHarness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestGuestTokenEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodPost, "/api/v1/auth/guest", "", gin.H{"username": "visitor"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := h.auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, claims.Role)
}

func TestGuestSenderTokenRequiresSenderID(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodPost, "/api/v1/auth/guest", "", gin.H{
		"username":   "cam-rig",
		"clientType": "sender",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/auth/guest", "", gin.H{
		"username":   "cam-rig",
		"clientType": "sender",
		"senderId":   domain.NewSenderID(),
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVenueCRUDOverREST(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.token(t, domain.UserRecord{UserID: "u1", Username: "ada", Role: domain.RoleUser})

	w := h.do(http.MethodPost, "/api/v1/venues", owner, gin.H{"name": "gig"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Venue domain.VenueRecord `json:"venue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, domain.UserID("u1"), created.Venue.OwnerUserID)

	path := "/api/v1/venues/" + string(created.Venue.VenueID)
	w = h.do(http.MethodPatch, path, owner, gin.H{"name": "renamed gig"})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched struct {
		Venue domain.VenueRecord `json:"venue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "renamed gig", fetched.Venue.Name)

	w = h.do(http.MethodDelete, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, path, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnlistedVenueHiddenFromStrangers(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.token(t, domain.UserRecord{UserID: "u1", Username: "ada", Role: domain.RoleUser})
	stranger := h.token(t, domain.UserRecord{UserID: "u2", Username: "bob", Role: domain.RoleUser})

	w := h.do(http.MethodPost, "/api/v1/venues", owner, gin.H{"name": "secret gig"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Venue domain.VenueRecord `json:"venue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := "/api/v1/venues/" + string(created.Venue.VenueID)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, path, stranger, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, path, owner, nil).Code)
}

func TestVenueDeletionRequiresOwnerOrAdmin(t *testing.T) {
	h := newAPIHarness(t)
	owner := h.token(t, domain.UserRecord{UserID: "u1", Username: "ada", Role: domain.RoleUser})
	stranger := h.token(t, domain.UserRecord{UserID: "u2", Username: "bob", Role: domain.RoleUser})
	admin := h.token(t, domain.UserRecord{UserID: "a1", Username: "root", Role: domain.RoleAdmin})

	w := h.do(http.MethodPost, "/api/v1/venues", owner, gin.H{"name": "gig"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Venue domain.VenueRecord `json:"venue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/api/v1/venues/" + string(created.Venue.VenueID)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, path, stranger, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, path, admin, nil).Code)
}

func TestLoadedVenuesRequiresModerator(t *testing.T) {
	h := newAPIHarness(t)
	user := h.token(t, domain.UserRecord{UserID: "u1", Username: "ada", Role: domain.RoleUser})
	mod := h.token(t, domain.UserRecord{UserID: "m1", Username: "mona", Role: domain.RoleModerator})

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/admin/venues/loaded", user, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/admin/venues/loaded", mod, nil).Code)
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	h := newAPIHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/venues", "", nil).Code)
}
