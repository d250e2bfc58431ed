package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/web"
)

type resolverMock struct{ mock.Mock }

func (m *resolverMock) Resolve(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func newGuard(r Resolver) (*Guard, *web.Sessions) {
	s := web.NewSessions([]byte("0123456789abcdef0123456789abcdef"), false)
	return &Guard{Users: r, Sessions: s}, s
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(t *testing.T, h echo.HandlerFunc, token, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: tokens.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestLoadUser_AttachesFreshUser(t *testing.T) {
	r := &resolverMock{}
	r.On("Resolve", mock.Anything, "good").Return(&models.User{ID: "u1", Role: models.RoleAdmin}, nil)
	g, _ := newGuard(r)

	var seen *models.User
	h := g.LoadUser(func(c echo.Context) error {
		seen = CurrentUser(c)
		return ok(c)
	})
	serve(t, h, "good", "/")
	require.NotNil(t, seen)
	require.Equal(t, "u1", seen.ID)
	r.AssertExpectations(t)
}

func TestLoadUser_BadTokenClearsCookie(t *testing.T) {
	r := &resolverMock{}
	r.On("Resolve", mock.Anything, "stale").Return(nil, errors.New("expired"))
	g, _ := newGuard(r)

	var seen *models.User
	h := g.LoadUser(func(c echo.Context) error {
		seen = CurrentUser(c)
		return ok(c)
	})
	rec := serve(t, h, "stale", "/")
	require.Nil(t, seen)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == tokens.CookieName && ck.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestRequireLogin_RedirectsAnonymous(t *testing.T) {
	g, _ := newGuard(&resolverMock{})
	rec := serve(t, g.RequireLogin(ok), "", "/user/cart")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestRequireAdmin(t *testing.T) {
	r := &resolverMock{}
	r.On("Resolve", mock.Anything, "cust").Return(&models.User{ID: "c1", Role: models.RoleCustomer}, nil)
	r.On("Resolve", mock.Anything, "admin").Return(&models.User{ID: "a1", Role: models.RoleAdmin}, nil)
	g, _ := newGuard(r)
	h := g.LoadUser(g.RequireAdmin(ok))

	rec := serve(t, h, "", "/admin/products")
	require.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = serve(t, h, "cust", "/admin/products")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = serve(t, h, "admin", "/admin/products")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTrackable(t *testing.T) {
	require.True(t, trackable("/"))
	require.True(t, trackable("/products/abc"))
	require.False(t, trackable("/login"))
	require.False(t, trackable("/health/live"))
	require.False(t, trackable("/products/abc/image"))
}

func TestRequireAdmin_ReturnsToPreviousPage(t *testing.T) {
	r := &resolverMock{}
	r.On("Resolve", mock.Anything, "cust").Return(&models.User{ID: "c1", Role: models.RoleCustomer}, nil)
	g, s := newGuard(r)
	h := g.TrackURL(g.LoadUser(g.RequireAdmin(ok)))

	rec := serve(t, g.TrackURL(ok), "", "/products")
	var sessionCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == web.SessionName {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: tokens.CookieName, Value: "cust"})
	req.AddCookie(&http.Cookie{Name: sessionCookie.Name, Value: sessionCookie.Value})
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/products", rec.Header().Get(echo.HeaderLocation))
	require.Equal(t, "/products", s.PreviousURL(c))
}
