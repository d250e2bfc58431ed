package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

type errorView struct {
	Status  int
	Message string
}

func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, service.ErrInvalidID):
		return http.StatusBadRequest, "Invalid id"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, service.UserMessage(err, "Invalid input")
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "You are not authorized for this operation"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Page not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

// fail logs a terminal error and turns it into an HTTP error.
func fail(l *slog.Logger, op string, err error) error {
	code, msg := statusOf(err)
	if code >= 500 {
		l.Error(op+"_error", "status", code, "reason", msg, "error", err)
	} else {
		l.Warn(op+"_failed", "status", code, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

// ErrorHandler renders the error page with the mapped status.
func (b *base) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusOf(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	page := b.page(c, http.StatusText(code), errorView{Status: code, Message: msg})
	if rerr := c.Render(code, "error", page); rerr != nil {
		_ = c.String(code, msg)
	}
}
