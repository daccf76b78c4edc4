package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Muab01/samVR/internal/core/domain"
	"github.com/Muab01/samVR/internal/core/ports"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
)

// AuthService issues and validates connection tokens. A token binds a user
// to a connection type: sender tokens additionally carry the device's
// stable senderId.
type AuthService interface {
	GenerateToken(ctx context.Context, userID domain.UserID, clientType domain.ClientType, senderID domain.SenderID) (string, error)
	GenerateGuestToken(username string, clientType domain.ClientType, senderID domain.SenderID) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	// ResolveUser turns validated claims into a user record, consulting
	// the user store for registered users.
	ResolveUser(ctx context.Context, claims *Claims) (*domain.UserRecord, error)
	RequireRole(claims *Claims, minimum domain.UserRole) error
}

type Claims struct {
	UserID     domain.UserID     `json:"userId"`
	Username   string            `json:"username"`
	Role       domain.UserRole   `json:"role"`
	ClientType domain.ClientType `json:"clientType"`
	SenderID   domain.SenderID   `json:"senderId,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	userRepo  ports.UserRepository // nil allows guest-only validation
}

func NewAuthService(jwtSecret string, tokenTTL time.Duration, userRepo ports.UserRepository) AuthService {
	return &authService{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		userRepo:  userRepo,
	}
}

func (s *authService) GenerateToken(ctx context.Context, userID domain.UserID, clientType domain.ClientType, senderID domain.SenderID) (string, error) {
	if s.userRepo == nil {
		return "", ErrUnauthorized
	}
	user, err := s.userRepo.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.sign(&Claims{
		UserID:     user.UserID,
		Username:   user.Username,
		Role:       user.Role,
		ClientType: clientType,
		SenderID:   senderID,
	})
}

// GenerateGuestToken mints a token for an anonymous visitor. Guests get
// the lowest security level and a fresh user id.
func (s *authService) GenerateGuestToken(username string, clientType domain.ClientType, senderID domain.SenderID) (string, error) {
	role := domain.RoleGuest
	if clientType == domain.ClientTypeSender {
		role = domain.RoleSender
	}
	return s.sign(&Claims{
		UserID:     domain.UserID("guest-" + string(domain.NewConnectionID())),
		Username:   username,
		Role:       role,
		ClientType: clientType,
		SenderID:   senderID,
	})
}

func (s *authService) sign(claims *Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !domain.ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	if claims.ClientType == domain.ClientTypeSender && claims.SenderID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) ResolveUser(ctx context.Context, claims *Claims) (*domain.UserRecord, error) {
	if s.userRepo != nil {
		if user, err := s.userRepo.GetUser(ctx, claims.UserID); err == nil {
			return user, nil
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}
	// Guests and users without a stored record fall back to the claims.
	return &domain.UserRecord{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (s *authService) RequireRole(claims *Claims, minimum domain.UserRole) error {
	if !domain.HasAtLeastSecurityLevel(claims.Role, minimum) {
		return ErrUnauthorized
	}
	return nil
}
