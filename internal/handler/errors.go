package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/document-registry/internal/service"
)

// writeError maps service errors onto the HTTP contract.  Anything not in
// the taxonomy is logged with op and answered with a generic 500.
func writeError(c echo.Context, op string, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": ve.Message})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid username or password"})
	case errors.Is(err, service.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Record not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"message": "Username already exists"})
	}
	slog.ErrorContext(c.Request().Context(), "request failed", "op", op, "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
}
