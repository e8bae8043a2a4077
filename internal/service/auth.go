package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/concrnt-journal/internal/domain"
)

var tracer = otel.Tracer("auth")

// ViewerClaims carries the viewer identity inside a session token.
type ViewerClaims struct {
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	Locale string      `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	config domain.Config
}

func NewAuthService(config domain.Config) *AuthService {
	return &AuthService{
		config: config,
	}
}

// Issue signs a token for viewer that expires after ttl.
func (s *AuthService) Issue(viewer domain.Viewer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ViewerClaims{
		Name:   viewer.Name,
		Role:   viewer.Role,
		Locale: viewer.Locale,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.ID,
			Audience:  jwt.ClaimStrings{s.config.FQDN},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JwtSecret))
}

func (s *AuthService) AuthJwt(ctx context.Context, token string) (domain.Viewer, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	parsed, err := jwt.ParseWithClaims(token, &ViewerClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JwtSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(s.config.FQDN),
	)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return domain.Viewer{}, err
	}

	claims, ok := parsed.Claims.(*ViewerClaims)
	if !ok || !parsed.Valid {
		err := fmt.Errorf("invalid token")
		span.RecordError(err)
		return domain.Viewer{}, err
	}

	if claims.Subject == "" {
		err := fmt.Errorf("invalid subject")
		span.RecordError(err)
		return domain.Viewer{}, err
	}

	role := claims.Role
	if role != domain.RoleGM {
		role = domain.RolePlayer
	}

	return domain.Viewer{
		ID:     claims.Subject,
		Name:   claims.Name,
		Role:   role,
		Locale: claims.Locale,
	}, nil
}
