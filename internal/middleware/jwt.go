package middleware // package middleware contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/document-registry/internal/service"
	"github.com/iliyamo/document-registry/internal/utils"
)

// ContextKeyUsername is the echo.Context key holding the authenticated
// username.
const ContextKeyUsername = "username"

// TokenVerifier is the part of service.AuthService the middleware needs.
type TokenVerifier interface {
	Verify(raw string) (service.Principal, error)
}

// BearerAuth returns an Echo middleware that validates the Bearer token in
// the Authorization header.  A missing token is answered with 401; a token
// with a bad signature or past its expiry with 403.  On success the
// username is stored under ContextKeyUsername.
func BearerAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			p, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
				}
				c.Logger().Debugf("bearer rejected: %v", err)
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden"})
			}
			c.Set(ContextKeyUsername, p.Username)
			return next(c)
		}
	}
}
