package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

var ErrInvalidToken = errors.New("invalid access token")

const DefaultTokenTTL = 12 * time.Hour

type AuthService struct {
	googleTokenVerifier ports.TokenVerifier
	jwtSecret           []byte
	googleClientID      string
	tokenTTL            time.Duration
	now                 func() time.Time
}

func NewAuthService(googleTokenVerifier ports.TokenVerifier, jwtSecret []byte, googleClientID string, tokenTTL time.Duration) *AuthService {
	if len(jwtSecret) == 0 {
		slog.Warn("JWT secret is not set")
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		googleTokenVerifier: googleTokenVerifier,
		jwtSecret:           jwtSecret,
		googleClientID:      googleClientID,
		tokenTTL:            tokenTTL,
		now:                 time.Now,
	}
}

// LoginWithGoogle exchanges a Google ID token for an access token whose
// subject is the verified email address. That address is the identity the
// ballot authorizes against.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (string, error) {
	if s.googleTokenVerifier == nil {
		return "", errors.New("google login is not configured")
	}
	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.googleClientID)
	if err != nil {
		return "", fmt.Errorf("invalid google token: %w", err)
	}
	if payload.Email == "" {
		return "", errors.New("google token carries no email")
	}

	accessToken, err := s.IssueAccessToken(payload.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

func (s *AuthService) IssueAccessToken(identity string) (string, error) {
	if identity == "" {
		return "", errors.New("identity is required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub": identity,
		"exp": now.Add(s.tokenTTL).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseAccessToken validates token and returns the identity it was issued
// for.
func (s *AuthService) ParseAccessToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}
