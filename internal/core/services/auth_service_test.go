package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/infrastructure/repositories/memory"
)

func newTestAuthService(ttl time.Duration) (AuthService, *memory.UserRepository) {
	users := memory.NewUserRepository()
	return NewAuthService("test-secret", ttl, users), users
}

func TestTokenRoundTripForRegisteredUser(t *testing.T) {
	svc, users := newTestAuthService(time.Hour)
	users.PutUser(domain.UserRecord{UserID: "u1", Username: "ada", Role: domain.RoleModerator})

	token, err := svc.GenerateToken(context.Background(), "u1", domain.ClientTypeViewer, "")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, domain.RoleModerator, claims.Role)
	assert.Equal(t, domain.ClientTypeViewer, claims.ClientType)
}

func TestGuestTokenGetsGuestRole(t *testing.T) {
	svc, _ := newTestAuthService(time.Hour)

	token, err := svc.GenerateGuestToken("visitor", domain.ClientTypeViewer, "")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, claims.Role)
	assert.NotEmpty(t, claims.UserID)
}

func TestSenderGuestTokenCarriesSenderID(t *testing.T) {
	svc, _ := newTestAuthService(time.Hour)
	senderID := domain.NewSenderID()

	token, err := svc.GenerateGuestToken("cam-rig", domain.ClientTypeSender, senderID)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSender, claims.Role)
	assert.Equal(t, senderID, claims.SenderID)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, _ := newTestAuthService(-time.Minute)

	token, err := svc.GenerateGuestToken("visitor", domain.ClientTypeViewer, "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	svc, _ := newTestAuthService(time.Hour)
	token, err := svc.GenerateGuestToken("visitor", domain.ClientTypeViewer, "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveUserPrefersStoredRecord(t *testing.T) {
	svc, users := newTestAuthService(time.Hour)
	users.PutUser(domain.UserRecord{UserID: "u1", Username: "ada", Role: domain.RoleAdmin})

	claims := &Claims{UserID: "u1", Username: "stale", Role: domain.RoleGuest}
	user, err := svc.ResolveUser(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestRequireRoleHonorsHierarchy(t *testing.T) {
	svc, _ := newTestAuthService(time.Hour)

	moderator := &Claims{Role: domain.RoleModerator}
	assert.NoError(t, svc.RequireRole(moderator, domain.RoleUser))
	assert.NoError(t, svc.RequireRole(moderator, domain.RoleModerator))
	assert.ErrorIs(t, svc.RequireRole(moderator, domain.RoleAdmin), ErrUnauthorized)
}
