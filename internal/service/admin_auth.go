package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin access is not configured")
)

const adminRole = "admin"

// AdminAuth checks the shared admin token and issues short-lived JWTs so
// the token itself does not have to travel on every request.
type AdminAuth struct {
	token     []byte
	jwtSecret []byte
	ttl       time.Duration
	logger    *zap.Logger
}

// NewAdminAuth creates the admin authenticator. An empty token disables
// admin access entirely.
func NewAdminAuth(token, jwtSecret string, ttl time.Duration, logger *zap.Logger) *AdminAuth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if jwtSecret == "" {
		jwtSecret = token
	}
	return &AdminAuth{
		token:     []byte(token),
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		logger:    logger,
	}
}

// Enabled reports whether an admin token is configured.
func (a *AdminAuth) Enabled() bool {
	return len(a.token) > 0
}

// CheckToken compares a presented admin token in constant time.
func (a *AdminAuth) CheckToken(presented string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare(a.token, []byte(presented)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// Login exchanges the admin token for a signed JWT.
func (a *AdminAuth) Login(presented string) (string, time.Time, error) {
	if err := a.CheckToken(presented); err != nil {
		a.logger.Warn("Admin login rejected", zap.Error(err))
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(a.ttl)
	claims := &models.AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminRole,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	a.logger.Info("Admin logged in", zap.Time("expires_at", expiresAt))
	return tokenString, expiresAt, nil
}

// ParseToken validates a JWT issued by Login.
func (a *AdminAuth) ParseToken(tokenString string) (*models.AdminClaims, error) {
	if !a.Enabled() {
		return nil, ErrAdminDisabled
	}

	claims := &models.AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Role != adminRole {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
