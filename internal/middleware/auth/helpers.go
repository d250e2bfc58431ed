package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
)

const userKey = "user"

type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

type Flasher interface {
	AddFlash(c echo.Context, category, message string) error
	PreviousURL(c echo.Context) string
	SetPreviousURL(c echo.Context, u string) error
}

func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userKey).(*models.User); ok {
		return u
	}
	return nil
}

func SetUser(c echo.Context, u *models.User) { c.Set(userKey, u) }

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}
