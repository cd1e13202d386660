package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/peakform/coachdesk-api/internal/models"
	"github.com/peakform/coachdesk-api/pkg/config"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

// TokenService validates access tokens issued by the identity platform.
// Token minting happens upstream; this service only verifies signatures and
// extracts claims.
type TokenService struct {
	config config.JWTConfig
	logger *zap.Logger
}

// NewTokenService constructs the validator.
func NewTokenService(cfg config.JWTConfig, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{config: cfg, logger: logger}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
