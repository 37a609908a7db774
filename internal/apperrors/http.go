package apperrors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/coinvault/internal/logger"
)

// Respond writes err as {"error": message}. Untyped errors are logged and
// reported as a generic 500 so driver details never reach clients.
func Respond(c echo.Context, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		logger.Errorf("unhandled error on %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if e.Code >= http.StatusInternalServerError {
		logger.Errorf("%s on %s %s: %v", e.Kind, c.Request().Method, c.Path(), e)
	}
	return c.JSON(e.Code, echo.Map{"error": e.Message, "kind": e.Kind})
}
