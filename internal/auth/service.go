package auth

import (
	"log/slog"
	"time"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/errors"
)

// Service issues and checks the session tokens carried by the auth cookie.
type Service struct {
	secret     []byte
	expiration time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(cfg config.AuthConfig, logger *slog.Logger) *Service {
	logger.Debug("Initializing auth service", "token_expiration", cfg.TokenExpiration)

	return &Service{
		secret:     []byte(cfg.JWTSecret),
		expiration: cfg.TokenExpiration,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) IssueToken(user *models.User) (string, error) {
	token, err := GenerateJWT(user, s.secret, s.expiration, s.now())
	if err != nil {
		return "", errors.WrapInternal("failed to sign token", err)
	}
	s.logger.Debug("Token issued", "user_id", user.ID)
	return token, nil
}

func (s *Service) ValidateToken(token string) (*Claims, error) {
	claims, err := ValidateJWT(token, s.secret)
	if err != nil {
		return nil, errors.Unauthorized("invalid token")
	}
	return claims, nil
}
