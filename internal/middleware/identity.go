package middleware

import "github.com/labstack/echo/v4"

// Username returns the authenticated username stored by BearerAuth, or ""
// for anonymous requests.
func Username(c echo.Context) string {
	if v, ok := c.Get(ContextKeyUsername).(string); ok {
		return v
	}
	return ""
}
