package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"collaborative-story/internal/token"
)

// AuthService issues admin-session tokens. There is a single admin
// principal whose bcrypt password hash comes from configuration; no user
// table exists.
type AuthService struct {
	codec             *token.Codec
	adminPasswordHash []byte
	sessionTTL        time.Duration
}

// NewAuthService creates an AuthService.
func NewAuthService(codec *token.Codec, adminPasswordHash string, sessionTTLHours int) (*AuthService, error) {
	if codec == nil {
		panic("token codec cannot be nil for AuthService")
	}
	if adminPasswordHash == "" {
		return nil, fmt.Errorf("admin password hash cannot be empty")
	}
	if sessionTTLHours <= 0 {
		sessionTTLHours = 24
	}
	return &AuthService{
		codec:             codec,
		adminPasswordHash: []byte(adminPasswordHash),
		sessionTTL:        time.Duration(sessionTTLHours) * time.Hour,
	}, nil
}

// Login verifies the admin password and returns a signed admin session.
// Wrong passwords and missing passwords are indistinguishable to callers.
func (s *AuthService) Login(ctx context.Context, password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminPasswordHash, []byte(password)); err != nil {
		logrus.Warn("Admin login attempt failed: invalid password")
		return "", ErrAuthenticationFailed
	}
	signed, err := s.codec.SignAdmin(token.RoleAdmin, "", s.sessionTTL)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign admin session token")
		return "", ErrInternalServer
	}
	logrus.Info("Admin logged in")
	return signed, nil
}
