package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = 12 * time.Hour

// AuthService exchanges the shared admin key for a short-lived JWT.
// Only the bcrypt hash of the key is held in memory; the key itself
// never touches persistent state.
type AuthService struct {
	adminKeyHash []byte
	jwtSecret    []byte
	logger       *slog.Logger
}

func NewAuthService(adminKeyHash, jwtSecret string, logger *slog.Logger) *AuthService {
	return &AuthService{
		adminKeyHash: []byte(adminKeyHash),
		jwtSecret:    []byte(jwtSecret),
		logger:       logger,
	}
}

// Login verifies the admin key and issues an admin token.
func (s *AuthService) Login(ctx context.Context, adminKey string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminKeyHash, []byte(adminKey)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("rejected admin login attempt")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to compare admin key hash: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(adminTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}

	s.logger.Info("admin login issued", slog.Time("expires_at", now.Add(adminTokenTTL)))
	return signed, nil
}

// VerifyAdminToken parses and validates an admin token, returning its
// claims.
func (s *AuthService) VerifyAdminToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != "admin" {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
