package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shepherd-api/internal/domain"
	"shepherd-api/internal/service"
	"shepherd-api/pkg/errors"
	"shepherd-api/pkg/logger"
)

// Service validates HS256 bearer tokens issued by the portal's identity
// provider.
type Service struct {
	secret []byte
	logger *logger.Logger
}

// NewService creates a new auth service
func NewService(jwtSecret string, logger *logger.Logger) service.AuthService {
	return &Service{
		secret: []byte(jwtSecret),
		logger: logger,
	}
}

// ValidateToken parses and verifies a JWT and returns its claims.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.AuthClaims, error) {
	if len(s.secret) == 0 {
		s.logger.Error("JWT_SECRET not configured")
		return nil, errors.NewAuthenticationError("Token validation not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to parse/validate JWT token")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewAuthenticationError("Invalid token claims")
	}

	claims := &domain.AuthClaims{
		Sub:   getStringValue(mapClaims, "sub"),
		Email: getStringValue(mapClaims, "email"),
		Name:  getStringValue(mapClaims, "name"),
		Iat:   getInt64Value(mapClaims, "iat"),
		Exp:   getInt64Value(mapClaims, "exp"),
	}

	if claims.Exp > 0 && time.Now().Unix() > claims.Exp {
		return nil, errors.NewAuthenticationError("Token has expired")
	}
	if claims.Sub == "" {
		s.logger.Error("No user identifier found in token")
		return nil, errors.NewAuthenticationError("Invalid token: no user identifier")
	}

	s.logger.WithField("user_id", claims.Sub).Debug("Token validated successfully")
	return claims, nil
}

// Helper functions to safely extract values from claims
func getStringValue(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getInt64Value(m map[string]interface{}, key string) int64 {
	if val, ok := m[key].(float64); ok {
		return int64(val)
	}
	return 0
}
