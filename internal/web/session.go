package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	SessionName = "ecomv1_id"

	keyPrevURL = "previous_url"
)

type Flash struct {
	Category string
	Message  string
}

type Sessions struct {
	Store sessions.Store
}

func NewSessions(secret []byte, secure bool) *Sessions {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{Store: store}
}

func (s *Sessions) get(c echo.Context) *sessions.Session {
	sess, err := s.Store.Get(c.Request(), SessionName)
	if err != nil {
		// a tampered or rotated cookie yields a fresh session
		sess, _ = s.Store.New(c.Request(), SessionName)
	}
	return sess
}

// save replaces any session cookie already queued on this response.
func (s *Sessions) save(c echo.Context, sess *sessions.Session) error {
	h := c.Response().Header()
	var kept []string
	for _, v := range h.Values(echo.HeaderSetCookie) {
		if !strings.HasPrefix(v, SessionName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del(echo.HeaderSetCookie)
	for _, v := range kept {
		h.Add(echo.HeaderSetCookie, v)
	}
	return sess.Save(c.Request(), c.Response())
}

func (s *Sessions) AddFlash(c echo.Context, category, message string) error {
	sess := s.get(c)
	sess.AddFlash(message, category)
	return s.save(c, sess)
}

var categories = []string{"status", "register", "login", "success", "error"}

// Flashes drains all pending flash messages.
func (s *Sessions) Flashes(c echo.Context) []Flash {
	sess := s.get(c)
	var out []Flash
	for _, cat := range categories {
		for _, m := range sess.Flashes(cat) {
			if msg, ok := m.(string); ok {
				out = append(out, Flash{Category: cat, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = s.save(c, sess)
	}
	return out
}

func (s *Sessions) PreviousURL(c echo.Context) string {
	if v, ok := s.get(c).Values[keyPrevURL].(string); ok && v != "" {
		return v
	}
	return "/"
}

func (s *Sessions) SetPreviousURL(c echo.Context, u string) error {
	sess := s.get(c)
	if cur, _ := sess.Values[keyPrevURL].(string); cur == u {
		return nil
	}
	sess.Values[keyPrevURL] = u
	return s.save(c, sess)
}

// Reset clears every stored value but keeps pending flashes.
func (s *Sessions) Reset(c echo.Context) error {
	sess := s.get(c)
	for k := range sess.Values {
		if name, ok := k.(string); ok && isCategory(name) {
			continue
		}
		delete(sess.Values, k)
	}
	return s.save(c, sess)
}

func isCategory(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
