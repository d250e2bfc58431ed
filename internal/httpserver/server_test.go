package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/mocks"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/web"
)

var testSecret = []byte("test-secret-0123456789abcdef-0123")

type testApp struct {
	t    *testing.T
	e    *echo.Echo
	db   *gorm.DB
	repo *repo.GormRepo
	auth *service.AuthService
}

func newTestApp(t *testing.T, csrfCfg *csrf.Config, opts ...func(*Deps)) *testApp {
	t.Helper()
	db := testutil.NewDB(t)
	r := repo.New(db)
	auth := &service.AuthService{Repo: r, Tokens: &tokens.Issuer{Secret: testSecret, TTL: time.Hour}}

	deps := &Deps{
		Logger:         logging.NewWithWriter(io.Discard, "error"),
		Repo:           r,
		Auth:           auth,
		Catalog:        &service.CatalogService{Repo: r, Index: &search.SQL{Repo: r}},
		Reviews:        &service.ReviewService{Repo: r},
		Cart:           &service.CartService{Repo: r},
		Orders:         &service.OrderService{Repo: r},
		Sessions:       web.NewSessions(testSecret, false),
		CSRF:           csrfCfg,
		MaxUploadBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(deps)
	}
	e, err := New(deps)
	require.NoError(t, err)
	return &testApp{t: t, e: e, db: db, repo: r, auth: auth}
}

// client keeps its own cookies so several users can share one app.
type client struct {
	app *testApp
	jar map[string]*http.Cookie
}

func (a *testApp) client() *client {
	return &client{app: a, jar: map[string]*http.Cookie{}}
}

func (c *client) do(method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, ck := range c.jar {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	rec := httptest.NewRecorder()
	c.app.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.jar, ck.Name)
			continue
		}
		c.jar[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, nil)
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return c.do(http.MethodPost, target, form)
}

func (c *client) register(username, email, password string) {
	rec := c.post("/register", url.Values{"username": {username}, "email": {email}, "password": {password}})
	require.Equal(c.app.t, http.StatusSeeOther, rec.Code)
	require.Equal(c.app.t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func (c *client) login(email, password string) {
	rec := c.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(c.app.t, http.StatusSeeOther, rec.Code)
	require.Contains(c.app.t, c.jar, tokens.CookieName)
}

func (a *testApp) customer(name string) (*client, *models.User) {
	c := a.client()
	email := name + "@example.com"
	c.register(name, email, "secret1")
	c.login(email, "secret1")
	u, err := a.repo.GetUserByEmail(context.Background(), email)
	require.NoError(a.t, err)
	return c, u
}

func (a *testApp) admin() *client {
	_, err := a.auth.EnsureAdmin(context.Background(), "root", "root@example.com", "rootpass")
	require.NoError(a.t, err)
	c := a.client()
	c.login("root@example.com", "rootpass")
	return c
}

func (a *testApp) product(name string, price float64) *models.Product {
	p := &models.Product{Name: name, Price: price, Description: name + " description"}
	require.NoError(a.t, a.repo.CreateProduct(context.Background(), p))
	return p
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)
	c := app.client()

	assert.Equal(t, http.StatusOK, c.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, c.get("/health/ready").Code)
}

func TestShopperFlow(t *testing.T) {
	app := newTestApp(t, nil)
	lamp := app.product("Desk Lamp", 12.5)
	ctx := context.Background()

	c := app.client()
	c.register("alice", "alice@example.com", "secret1")

	rec := c.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User Registered Successfully, Login to Continue")

	c.login("alice@example.com", "secret1")
	user, err := app.repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, user.Role)

	rec = c.post("/user/cart/"+lamp.ID, url.Values{"quantity": {"3"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user/cart", rec.Header().Get(echo.HeaderLocation))

	rec = c.post("/user/cart/"+lamp.ID, url.Values{"quantity": {"4"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/user/cart")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You cannot add more than 5 of the same item.")
	assert.Contains(t, rec.Body.String(), "Desk Lamp")

	lines, err := app.repo.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	rec = c.post("/user/order", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get(echo.HeaderLocation))

	rec = c.get("/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Order placed successfully with Cash on Delivery.")
	assert.Contains(t, body, service.OrderPrefix)
	assert.Contains(t, body, models.PaymentCOD)
	assert.Contains(t, body, "62.50")

	lines, err = app.repo.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	orders, err := app.repo.ListOrders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.InDelta(t, 62.5, orders[0].FinalPrice, 0.001)
}

func TestPlaceOrderWithEmptyCart(t *testing.T) {
	app := newTestApp(t, nil)
	c, user := app.customer("bob")

	rec := c.post("/user/order", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user/cart", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/user/cart").Body.String(), "Your cart is empty.")

	orders, err := app.repo.ListOrders(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestRemoveFromCart(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.product("Mug", 4)
	c, user := app.customer("carol")

	c.post("/user/cart/"+p.ID, url.Values{"quantity": {"2"}})

	for i := 0; i < 2; i++ {
		rec := c.post("/user/cart/"+p.ID, url.Values{"_method": {http.MethodDelete}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/user/cart", rec.Header().Get(echo.HeaderLocation))
	}

	lines, err := app.repo.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Contains(t, c.get("/user/cart").Body.String(), "Item deleted from your cart")
}

func TestCartRequiresLogin(t *testing.T) {
	app := newTestApp(t, nil)
	c := app.client()

	rec := c.get("/user/cart")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/login").Body.String(), "You need to login to continue")
}

func TestAdminRoutesRejectCustomer(t *testing.T) {
	app := newTestApp(t, nil)
	c, _ := app.customer("dave")

	c.get("/products")
	rec := c.get("/admin/products")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/products").Body.String(), "You need to be an Admin to continue..")

	rec = c.post("/products/new", url.Values{"name": {"Hack"}, "price": {"1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	products, err := app.repo.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestAdminCreateProduct(t *testing.T) {
	app := newTestApp(t, nil)
	admin := app.admin()
	ctx := context.Background()

	for _, price := range []string{"abc", "-1", "100001", "NaN"} {
		rec := admin.post("/products/new", url.Values{"name": {"Chair"}, "price": {price}})
		require.Equal(t, http.StatusSeeOther, rec.Code, price)
		assert.Equal(t, "/products/new", rec.Header().Get(echo.HeaderLocation), price)
	}
	products, err := app.repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	rec := admin.post("/products/new", url.Values{"name": {"Chair"}, "price": {"49.90"}, "description": {"Oak"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products", rec.Header().Get(echo.HeaderLocation))

	rec = admin.get("/admin/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item Added Successfully!")
	assert.Contains(t, rec.Body.String(), "Chair")

	products, err = app.repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.InDelta(t, 49.9, products[0].Price, 0.001)
}

func TestAdminUpdateProduct(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.product("Table", 100)
	admin := app.admin()

	rec := admin.post("/products/"+p.ID, url.Values{
		"_method": {http.MethodPatch}, "name": {"Big Table"}, "price": {"150"}, "description": {"Walnut"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products", rec.Header().Get(echo.HeaderLocation))

	got, err := app.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Table", got.Name)
	assert.InDelta(t, 150, got.Price, 0.001)

	rec = admin.post("/products/"+p.ID, url.Values{"_method": {http.MethodPatch}, "name": {"Big Table"}, "price": {"oops"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products/"+p.ID+"/edit", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminDeleteRemovesCartLines(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.product("Vase", 30)
	shopper, user := app.customer("erin")
	shopper.post("/user/cart/"+p.ID, url.Values{"quantity": {"2"}})

	admin := app.admin()
	rec := admin.post("/products/"+p.ID+"/delete", url.Values{"_method": {http.MethodDelete}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, admin.get("/admin/products").Body.String(), "was deleted successfully")

	var count int64
	require.NoError(t, app.db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.Equal(t, http.StatusNotFound, admin.post("/products/"+p.ID+"/delete", url.Values{"_method": {http.MethodDelete}}).Code)
}

func TestProductStatusCodes(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.product("Clock", 20)
	c := app.client()

	rec := c.get("/products/" + p.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Clock")

	assert.Equal(t, http.StatusBadRequest, c.get("/products/not-a-uuid").Code)

	rec = c.get("/products/" + uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")

	assert.Equal(t, http.StatusNotFound, c.get("/products/"+p.ID+"/image").Code)
}

func TestAddUnknownProductToCart(t *testing.T) {
	app := newTestApp(t, nil)
	c, _ := app.customer("frank")

	assert.Equal(t, http.StatusNotFound, c.post("/user/cart/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.post("/user/cart/nope", nil).Code)
}

func TestReviewOwnership(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.product("Kettle", 25)
	ctx := context.Background()

	author, _ := app.customer("gina")
	rec := author.post("/products/"+p.ID+"/reviews", url.Values{"rating": {"4"}, "body": {"Boils fast"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products/"+p.ID, rec.Header().Get(echo.HeaderLocation))

	var rev models.Review
	require.NoError(t, app.db.Where("product_id = ?", p.ID).First(&rev).Error)
	assert.Equal(t, "gina", rev.Author)

	other, _ := app.customer("hank")
	rec = other.post("/products/"+p.ID+"/reviews/"+rev.ID, url.Values{
		"_method": {http.MethodPatch}, "rating": {"1"}, "body": {"Terrible"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products/"+p.ID, rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, other.get("/products/"+p.ID).Body.String(), "You are not authorized for this operation")

	rec = other.post("/products/"+p.ID+"/reviews/"+rev.ID, url.Values{"_method": {http.MethodDelete}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := app.repo.GetReview(ctx, p.ID, rev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boils fast", got.Body)
	assert.Equal(t, 4, got.Rating)

	rec = author.post("/products/"+p.ID+"/reviews/"+rev.ID, url.Values{
		"_method": {http.MethodPatch}, "rating": {"5"}, "body": {"Still great"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err = app.repo.GetReview(ctx, p.ID, rev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Still great", got.Body)

	assert.Equal(t, http.StatusNotFound, author.get("/products/"+p.ID+"/reviews/"+uuid.NewString()).Code)
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t, nil)
	c, _ := app.customer("ivy")

	rec := c.post("/login", url.Values{"email": {"ivy@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	c.get("/logout")
	assert.NotContains(t, c.jar, tokens.CookieName)

	for _, creds := range [][2]string{{"ivy@example.com", "wrong-password"}, {"nobody@example.com", "secret1"}} {
		rec = c.post("/login", url.Values{"email": {creds[0]}, "password": {creds[1]}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
		assert.Contains(t, c.get("/login").Body.String(), "Invalid email or password")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t, nil)
	c := app.client()
	c.register("jack", "jack@example.com", "secret1")

	rec := c.post("/register", url.Values{"username": {"jack2"}, "email": {"jack@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/register", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/register").Body.String(), "An account with this email already exists")
}

func TestSessionCookieCarriesOnlyClaims(t *testing.T) {
	app := newTestApp(t, nil)
	c, user := app.customer("kate")

	tok := c.jar[tokens.CookieName].Value
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)

	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"exp", "iat", "role", "sub"}, keys)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, models.RoleCustomer, claims["role"])
}

func TestAdminExport(t *testing.T) {
	app := newTestApp(t, nil)
	app.product("Alpha", 1.5)
	app.product("Beta", 2)
	admin := app.admin()

	rec := admin.get("/admin/products/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")

	book, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	sheet, ok := book.Sheet["Products"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].Value)

	names := []string{sheet.Rows[1].Cells[1].Value, sheet.Rows[2].Cells[1].Value}
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, names)
}

func TestSearchPage(t *testing.T) {
	app := newTestApp(t, nil)
	app.product("Red Kettle", 10)
	app.product("Blue Mug", 5)

	rec := app.client().get("/search?q=kettle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Red Kettle")
	assert.NotContains(t, rec.Body.String(), "Blue Mug")
}

func TestCSRFRejectsPostWithoutToken(t *testing.T) {
	cfg := csrf.DefaultConfig()
	app := newTestApp(t, &cfg)
	c := app.client()

	rec := c.get("/register")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="_csrf"`)
	token := rec.Header().Get(cfg.HeaderName)
	require.NotEmpty(t, token)

	form := url.Values{"username": {"lena"}, "email": {"lena@example.com"}, "password": {"secret1"}}
	rec = c.do(http.MethodPost, "/register", form, "Origin", "http://example.com")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	form.Set(cfg.FormField, token)
	rec = c.do(http.MethodPost, "/register", form, "Origin", "http://example.com")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestPlaceOrderPublishesEvent(t *testing.T) {
	pub := &mocks.MockPublisher{}
	pub.On("Publish", mock.Anything, events.TopicUser, mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, events.TopicCart, mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, events.TopicOrder, mock.Anything, mock.MatchedBy(func(ev events.Event) bool {
		return ev.Type == "order.placed"
	})).Return(errors.New("broker down")).Once()

	app := newTestApp(t, nil, func(d *Deps) { d.Events = pub })
	p := app.product("Candle", 8)
	c, user := app.customer("mona")
	c.post("/user/cart/"+p.ID, url.Values{"quantity": {"2"}})

	rec := c.post("/user/order", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get(echo.HeaderLocation))

	orders, err := app.repo.ListOrders(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	pub.AssertExpectations(t)
}

func TestOversizedBodyRejected(t *testing.T) {
	app := newTestApp(t, nil)
	app.customer("nora")

	// limit is MaxUploadBytes plus 1MB of form overhead
	payload := url.Values{
		"email":    {"nora@example.com"},
		"password": {"secret1"},
		"padding":  {strings.Repeat("a", 3<<20)},
	}.Encode()

	cases := map[string]func() *http.Request{
		"chunked": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/login", io.MultiReader(strings.NewReader(payload)))
			req.TransferEncoding = []string{"chunked"}
			return req
		},
		"content length": func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(payload))
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			req := build()
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			rec := httptest.NewRecorder()
			app.e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			for _, ck := range rec.Result().Cookies() {
				assert.NotEqual(t, tokens.CookieName, ck.Name)
			}
		})
	}
}
