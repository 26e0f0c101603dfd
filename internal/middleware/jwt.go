package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/service"
)

// TokenResolver turns a bearer token into the caller's identity.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (service.Identity, error)
}

// JWTAuth validates the Bearer access token and stores the resolved
// identity in the context.  Handlers read it with IdentityFrom; the
// user_id and role keys are kept for logging and rate limiting.
func JWTAuth(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			id, err := resolver.Resolve(c.Request().Context(), raw)
			switch {
			case errors.Is(err, service.ErrUnauthorized):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			case err != nil:
				logrus.WithError(err).Error("resolve token")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			case !id.IsActive:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
			}

			SetIdentity(c, id)
			return next(c)
		}
	}
}
