package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/concrnt-journal/internal/domain"
	"github.com/totegamma/concrnt-journal/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyViewer resolves the bearer token into a domain.Viewer stored
// under domain.ViewerCtxKey. Requests without a valid token pass through
// anonymous. Websocket clients may send the token as the "token" query
// parameter.
func (s *AuthMiddleware) IdentifyViewer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyViewer")
		defer span.End()

		token, err := bearer(c)
		if err != nil {
			span.RecordError(err)
		}

		if token != "" {
			viewer, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyViewer: s.auth.AuthJwt failed"))
			} else {
				if viewer.Locale == "" {
					viewer.Locale = c.Request().Header.Get(domain.ViewerLocaleHeader)
				}
				ctx = context.WithValue(ctx, domain.ViewerCtxKey, viewer)
				span.SetAttributes(
					attribute.String("ViewerId", viewer.ID),
					attribute.String("ViewerRole", string(viewer.Role)),
				)
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireViewer rejects anonymous requests.
func RequireViewer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := ViewerFrom(c.Request().Context()); !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return next(c)
	}
}

func ViewerFrom(ctx context.Context) (domain.Viewer, bool) {
	viewer, ok := ctx.Value(domain.ViewerCtxKey).(domain.Viewer)
	return viewer, ok
}

func bearer(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("authorization")
	if authHeader == "" {
		return c.QueryParam("token"), nil
	}

	split := strings.Split(authHeader, " ")
	if len(split) != 2 {
		return "", fmt.Errorf("invalid authentication header")
	}
	authType, token := split[0], split[1]
	if authType != "Bearer" {
		return "", fmt.Errorf("only Bearer is acceptable")
	}
	return token, nil
}
