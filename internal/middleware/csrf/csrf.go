package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

// ContextKey is where the current token is stored for templates.
const ContextKey = "csrf_token"

// Config drives the double-submit check: the token lives in a readable
// cookie and every unsafe request must echo it in a header or form field.
type Config struct {
	CookieName string
	HeaderName string
	FormField  string

	CookiePath string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	EnforceSameOrigin bool

	SkipPaths []string
}

func DefaultConfig() Config {
	return Config{
		CookieName:        "storefront_csrf",
		HeaderName:        "X-CSRF-Token",
		FormField:         "_csrf",
		CookiePath:        "/",
		SameSite:          http.SameSiteLaxMode,
		MaxAge:            12 * time.Hour,
		EnforceSameOrigin: true,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.FormField == "" {
		cfg.FormField = def.FormField
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}
	return cfg
}

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skip[req.URL.Path] {
				return next(c)
			}

			token, err := cfg.current(req)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "cannot issue form token").SetInternal(err)
			}
			cfg.store(c, token)

			if safeMethods[req.Method] {
				c.Response().Header().Set(cfg.HeaderName, token)
				return next(c)
			}

			l := logging.FromContext(req.Context()).With("middleware", "csrf")
			if cfg.EnforceSameOrigin && !sameOrigin(req) {
				l.Warn("csrf_rejected", "status", http.StatusForbidden, "reason", "cross origin", "method", req.Method, "path", req.URL.Path)
				return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
			}
			if !matches(token, cfg.submitted(c)) {
				l.Warn("csrf_rejected", "status", http.StatusForbidden, "reason", "token mismatch", "method", req.Method, "path", req.URL.Path)
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}
			return next(c)
		}
	}
}

// Token returns the token set for this request, if any.
func Token(c echo.Context) string {
	t, _ := c.Get(ContextKey).(string)
	return t
}

// current reuses the cookie token or mints a new one.
func (cfg Config) current(req *http.Request) (string, error) {
	if ck, err := req.Cookie(cfg.CookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (cfg Config) store(c echo.Context, token string) {
	c.Set(ContextKey, token)
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		SameSite: cfg.SameSite,
	})
}

// submitted reads the header first, then the form field; FormValue also
// covers multipart bodies.
func (cfg Config) submitted(c echo.Context) string {
	if v := c.Request().Header.Get(cfg.HeaderName); v != "" {
		return v
	}
	return c.FormValue(cfg.FormField)
}

func matches(want, got string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// sameOrigin requires an Origin or Referer naming this host.
func sameOrigin(r *http.Request) bool {
	src := r.Header.Get("Origin")
	if src == "" {
		src = r.Header.Get("Referer")
	}
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	scheme := "http"
	switch {
	case r.Header.Get("X-Forwarded-Proto") != "":
		scheme = r.Header.Get("X-Forwarded-Proto")
	case r.TLS != nil:
		scheme = "https"
	}
	return strings.EqualFold(u.Scheme, scheme) && strings.EqualFold(u.Host, r.Host)
}
