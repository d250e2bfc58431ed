package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

type CartHTTP struct {
	base
	Svc *service.CartService
}

type cartView struct {
	Lines []models.CartItem
	Total float64
}

func parseQuantity(raw string) int {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return service.NormalizeQuantity(q)
}

func (h *CartHTTP) View(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view")
	user := authmw.CurrentUser(c)

	lines, err := h.Svc.View(ctx, user.ID)
	if err != nil {
		return fail(l, "get_cart", err)
	}
	return h.render(c, "user/cart", "Your cart", cartView{Lines: lines, Total: service.CartTotal(lines)})
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")
	user := authmw.CurrentUser(c)

	qty := parseQuantity(c.FormValue("quantity"))
	res, err := h.Svc.Add(ctx, user.ID, c.Param("prodId"), qty)
	if err != nil {
		return fail(l, "add_to_cart", err)
	}

	h.publish(c, events.TopicCart, user.ID, events.New("cart.item_added", map[string]any{
		"user_id": user.ID, "product_id": res.Line.ProductID, "quantity": res.Line.Quantity,
	}))
	if res.Clamped {
		l.Info("add_to_cart_clamped", "status", http.StatusSeeOther, "product_id", res.Line.ProductID)
		h.flash(c, "error", "You cannot add more than 5 of the same item.")
	}
	return h.redirect(c, "/user/cart")
}

func (h *CartHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")
	user := authmw.CurrentUser(c)

	removed, err := h.Svc.Remove(ctx, user.ID, c.Param("prodId"))
	if err != nil {
		return fail(l, "remove_from_cart", err)
	}
	if removed {
		h.publish(c, events.TopicCart, user.ID, events.New("cart.item_removed", map[string]any{
			"user_id": user.ID, "product_id": c.Param("prodId"),
		}))
	}
	return h.flashRedirect(c, "success", "Item deleted from your cart", "/user/cart")
}
