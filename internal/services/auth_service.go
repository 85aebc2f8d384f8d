// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/capdex/capdex-backend/internal/config"
	"github.com/capdex/capdex-backend/internal/utils"
)

// ErrInvalidCredentials is returned by Login for any rejected attempt.
var ErrInvalidCredentials = errors.New("invalid credentials")

const adminSubject = "admin"

type AuthService struct {
	cfg    config.AuthConfig
	tokens *utils.TokenManager
}

type LoginRequest struct {
	Password string `json:"password" validate:"required,max=72"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // in seconds
}

func NewAuthService(cfg config.AuthConfig, tokens *utils.TokenManager) *AuthService {
	return &AuthService{
		cfg:    cfg,
		tokens: tokens,
	}
}

// Login checks the operator password against the configured bcrypt hash.
// With no hash configured every attempt fails.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if s.cfg.AdminPasswordHash == "" {
		logrus.Warn("Admin login attempted but no password hash is configured")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	ttl := time.Duration(s.cfg.AccessTokenTTL) * time.Hour
	token, err := s.tokens.Generate(adminSubject, ttl)
	if err != nil {
		return nil, &Error{Kind: KindStoreFailure, Message: "failed to generate access token", Err: err}
	}

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	}, nil
}

// HashPassword produces a value suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
