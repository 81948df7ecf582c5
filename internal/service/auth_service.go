package service

import (
	"context"
	"crypto/subtle"
	"time"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService against the single admin
// account configured at startup.
type AuthServiceImpl struct {
	admin    config.AdminConfig
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(admin config.AdminConfig, hashSvc ports.HashService, tokenSvc ports.TokenService, log zerolog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		admin:    admin,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Login verifies admin credentials and returns a signed access token.
// Username and password failures are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1

	passwordOK, err := s.hashSvc.Verify(password, s.admin.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Msg("admin password hash is unusable")
		return "", time.Time{}, apperror.InternalError(err)
	}

	if !usernameOK || !passwordOK {
		s.log.Warn().Str("username", username).Msg("failed admin login attempt")
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(s.admin.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(err)
	}

	s.log.Info().Str("username", username).Msg("admin logged in")
	return token, expiresAt, nil
}
