package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/events"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/web"
)

type Deps struct {
	Logger   *slog.Logger
	Repo     *repo.GormRepo
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Reviews  *service.ReviewService
	Cart     *service.CartService
	Orders   *service.OrderService
	Sessions *web.Sessions
	Renderer *web.Renderer
	Events   events.Publisher

	// CSRF is nil when protection is disabled.
	CSRF           *csrf.Config
	CookieSecure   bool
	MaxUploadBytes int64
}

// New builds the echo instance with middleware, error handling and routes.
func New(d *Deps) (*echo.Echo, error) {
	if d.Renderer == nil {
		r, err := web.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("templates: %w", err)
		}
		d.Renderer = r
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	b := base{Sessions: d.Sessions, Events: d.Events}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer
	e.Validator = NewFormValidator()
	e.HTTPErrorHandler = b.ErrorHandler

	// the body limit wraps the reader before anything parses the form
	e.Pre(middleware.RemoveTrailingSlash())
	e.Pre(middleware.BodyLimit(fmt.Sprintf("%dK", (d.MaxUploadBytes+(1<<20))/1024)))
	e.Pre(parseFormBody)
	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure())
	e.Use(loggingmw.RequestLogger(d.Logger))
	if d.CSRF != nil {
		e.Use(csrf.Middleware(*d.CSRF))
	}

	guard := &authmw.Guard{Users: d.Auth, Sessions: d.Sessions, CookieSecure: d.CookieSecure}
	e.Use(guard.LoadUser, guard.TrackURL)

	Register(e, &Handlers{
		Repo:    d.Repo,
		Guard:   guard,
		Auth:    &AuthHTTP{base: b, Svc: d.Auth, CookieSecure: d.CookieSecure, MaxUploadBytes: d.MaxUploadBytes},
		Catalog: &CatalogHTTP{base: b, Svc: d.Catalog, MaxUploadBytes: d.MaxUploadBytes},
		Reviews: &ReviewHTTP{base: b, Svc: d.Reviews},
		Cart:    &CartHTTP{base: b, Svc: d.Cart},
		Orders:  &OrderHTTP{base: b, Svc: d.Orders},
		Admin:   &AdminHTTP{base: b, Catalog: d.Catalog},
		Search:  &SearchHTTP{base: b, Catalog: d.Catalog},
	})
	return e, nil
}

type Handlers struct {
	Repo    *repo.GormRepo
	Guard   *authmw.Guard
	Auth    *AuthHTTP
	Catalog *CatalogHTTP
	Reviews *ReviewHTTP
	Cart    *CartHTTP
	Orders  *OrderHTTP
	Admin   *AdminHTTP
	Search  *SearchHTTP
}

func Register(e *echo.Echo, h *Handlers) {
	login := h.Guard.RequireLogin
	admin := h.Guard.RequireAdmin

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.Repo.Ping(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	e.GET("/", h.Catalog.Index)
	e.GET("/search", h.Search.Search)

	products := e.Group("/products")
	products.GET("", h.Catalog.Index)
	products.GET("/new", h.Catalog.NewForm, admin)
	products.POST("/new", h.Catalog.Create, admin)
	products.GET("/:id", h.Catalog.Show)
	products.GET("/:id/image", h.Catalog.Image)
	products.GET("/:id/edit", h.Catalog.EditForm, admin)
	products.PATCH("/:id", h.Catalog.Update, admin)
	products.DELETE("/:id/delete", h.Catalog.Delete, admin)

	reviews := products.Group("/:id/reviews", login)
	reviews.POST("", h.Reviews.Add)
	reviews.GET("/:rev_id", h.Reviews.EditForm)
	reviews.PATCH("/:rev_id", h.Reviews.Update)
	reviews.DELETE("/:rev_id", h.Reviews.Delete)

	e.GET("/register", h.Auth.RegisterForm)
	e.POST("/register", h.Auth.Register)
	e.GET("/login", h.Auth.LoginForm)
	e.POST("/login", h.Auth.Login)
	e.GET("/logout", h.Auth.Logout)
	e.GET("/users/:id/avatar", h.Auth.Avatar)

	user := e.Group("/user", login)
	user.GET("/cart", h.Cart.View)
	user.POST("/cart/:prodId", h.Cart.Add)
	user.DELETE("/cart/:prodId", h.Cart.Remove)
	user.POST("/order", h.Orders.Place)
	user.GET("/orders", h.Orders.List)
	e.GET("/orders", h.Orders.List, login)

	adm := e.Group("/admin", admin)
	adm.GET("/products", h.Admin.Products)
	adm.GET("/products/export", h.Admin.Export)
}
