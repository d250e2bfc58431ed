package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	MsgLoginRequired = "You need to login to continue"
	MsgAdminRequired = "You need to be an Admin to continue.."
)

type Guard struct {
	Users        Resolver
	Sessions     Flasher
	CookieSecure bool
}

// LoadUser resolves the session cookie to a fresh user record. A bad token
// or a vanished user clears the cookie and the request continues anonymous.
func (g *Guard) LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(tokens.CookieName)
		if err != nil || ck.Value == "" {
			return next(c)
		}

		u, err := g.Users.Resolve(c.Request().Context(), ck.Value)
		if err != nil {
			logging.FromContext(c.Request().Context()).Info("session_dropped", "reason", err.Error())
			c.SetCookie(tokens.DeleteCookie(tokens.CookieName, "/", g.CookieSecure))
			return next(c)
		}
		SetUser(c, u)
		return next(c)
	}
}

func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			l := logging.FromContext(c.Request().Context()).With("guard", "require_login")
			l.Warn("access_denied", "status", http.StatusSeeOther, "reason", "anonymous")
			if err := g.Sessions.AddFlash(c, "error", MsgLoginRequired); err != nil {
				return err
			}
			return redirect(c, "/login")
		}
		return next(c)
	}
}

func (g *Guard) adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := CurrentUser(c)
		if !u.IsAdmin() {
			l := logging.FromContext(c.Request().Context()).With("guard", "admin_only")
			l.Warn("access_denied", "status", http.StatusSeeOther, "reason", "not admin", "user_id", u.ID)
			if err := g.Sessions.AddFlash(c, "error", MsgAdminRequired); err != nil {
				return err
			}
			back := g.referrer(c)
			if back == c.Request().URL.RequestURI() {
				back = "/"
			}
			if err := g.Sessions.SetPreviousURL(c, back); err != nil {
				return err
			}
			return redirect(c, back)
		}
		return next(c)
	}
}

// RequireAdmin is login first, then the role check on the fresh record.
func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.RequireLogin(g.adminOnly(next))
}

const ctxKeyReferrer = "referrer_url"

// referrer is the page viewed before this request.
func (g *Guard) referrer(c echo.Context) string {
	if v, ok := c.Get(ctxKeyReferrer).(string); ok && v != "" {
		return v
	}
	return g.Sessions.PreviousURL(c)
}

var untracked = []string{"/login", "/register", "/logout", "/health", "/favicon.ico"}

// TrackURL remembers the last page view for post-login and logout redirects.
func (g *Guard) TrackURL(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if req.Method == http.MethodGet && trackable(req.URL.Path) {
			c.Set(ctxKeyReferrer, g.Sessions.PreviousURL(c))
			if err := g.Sessions.SetPreviousURL(c, req.URL.RequestURI()); err != nil {
				logging.FromContext(req.Context()).Warn("track_url_failed", "error", err)
			}
		}
		return next(c)
	}
}

func trackable(path string) bool {
	if strings.HasSuffix(path, "/image") || strings.HasSuffix(path, "/export") {
		return false
	}
	for _, p := range untracked {
		if path == p || strings.HasPrefix(path, p+"/") {
			return false
		}
	}
	return true
}
