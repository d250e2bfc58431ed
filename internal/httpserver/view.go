package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/web"
)

// base carries what every page handler needs: flashes, rendering and events.
type base struct {
	Sessions *web.Sessions
	Events   events.Publisher
}

func (b *base) page(c echo.Context, title string, data any) web.Page {
	return web.Page{
		Title:   title,
		User:    authmw.CurrentUser(c),
		Flashes: b.Sessions.Flashes(c),
		CSRF:    csrf.Token(c),
		Data:    data,
	}
}

func (b *base) render(c echo.Context, name, title string, data any) error {
	return c.Render(http.StatusOK, name, b.page(c, title, data))
}

func (b *base) flash(c echo.Context, category, message string) {
	if err := b.Sessions.AddFlash(c, category, message); err != nil {
		logging.FromContext(c.Request().Context()).Warn("flash_failed", "error", err)
	}
}

func (b *base) redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}

func (b *base) flashRedirect(c echo.Context, category, message, to string) error {
	b.flash(c, category, message)
	return b.redirect(c, to)
}

func (b *base) publish(c echo.Context, topic, key string, event events.Event) {
	if b.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := b.Events.Publish(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "topic", topic, "type", event.Type, "error", err)
	}
}
