package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type AuthHTTP struct {
	base
	Svc            *service.AuthService
	CookieSecure   bool
	MaxUploadBytes int64
}

func (h *AuthHTTP) RegisterForm(c echo.Context) error {
	return h.render(c, "auth/register", "Register", nil)
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var form registerForm
	if err := bindForm(c, &form, "Registration failed, please try again"); err != nil {
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "invalid form", "error", err)
		return h.flashRedirect(c, "register", service.UserMessage(err, "Registration failed, please try again"), "/register")
	}
	avatar, err := readUpload(c, "image", h.MaxUploadBytes)
	if err != nil {
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "bad avatar", "error", err)
		return h.flashRedirect(c, "register", service.UserMessage(err, "Registration failed, please try again"), "/register")
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Image:    avatar,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrConflict):
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "email taken")
		return h.flashRedirect(c, "register", "An account with this email already exists", "/register")
	case errors.Is(err, service.ErrValidation):
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "invalid input", "error", err)
		return h.flashRedirect(c, "register", service.UserMessage(err, ""), "/register")
	default:
		l.Error("register_error", "status", http.StatusSeeOther, "reason", "cannot create user", "error", err)
		return h.flashRedirect(c, "register", "Registration failed, please try again", "/register")
	}

	h.publish(c, events.TopicUser, user.ID, events.New("user.registered", map[string]any{"user_id": user.ID}))
	l.Info("register_success", "user_id", user.ID)
	return h.flashRedirect(c, "login", "User Registered Successfully, Login to Continue", "/login")
}

func (h *AuthHTTP) LoginForm(c echo.Context) error {
	if authmw.CurrentUser(c) != nil {
		return h.flashRedirect(c, "error", "You are already logged in", "/")
	}
	return h.render(c, "auth/login", "Login", nil)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	if authmw.CurrentUser(c) != nil {
		return h.flashRedirect(c, "error", "You are already logged in", "/")
	}

	var form loginForm
	if err := bindForm(c, &form, "Invalid email or password"); err != nil {
		l.Warn("login_failed", "status", http.StatusSeeOther, "reason", "invalid form")
		return h.flashRedirect(c, "error", "Invalid email or password", "/login")
	}

	res, err := h.Svc.Login(ctx, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", http.StatusSeeOther, "reason", "invalid credentials")
			return h.flashRedirect(c, "error", "Invalid email or password", "/login")
		}
		return fail(l, "login", err)
	}

	c.SetCookie(tokens.CreateCookie(tokens.CookieName, res.Token, "/", res.Expires, h.CookieSecure))
	h.publish(c, events.TopicUser, res.User.ID, events.New("user.logged_in", map[string]any{"user_id": res.User.ID}))
	l.Info("login_success", "user_id", res.User.ID)
	return h.flashRedirect(c, "login", fmt.Sprintf(`Welcome back "%s"`, res.User.Username), h.Sessions.PreviousURL(c))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.logout")

	back := h.Sessions.PreviousURL(c)
	c.SetCookie(tokens.DeleteCookie(tokens.CookieName, "/", h.CookieSecure))
	if err := h.Sessions.Reset(c); err != nil {
		l.Warn("logout_reset_failed", "error", err)
	}
	if u := authmw.CurrentUser(c); u != nil {
		l.Info("logout_success", "user_id", u.ID)
	}
	return h.flashRedirect(c, "login", "User Logged Out", back)
}

func (h *AuthHTTP) Avatar(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.avatar")
	u, err := h.Svc.Avatar(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(l, "get_avatar", err)
	}
	return c.Blob(http.StatusOK, u.ImageType, u.Image)
}
