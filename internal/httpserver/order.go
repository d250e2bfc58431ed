package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

type OrderHTTP struct {
	base
	Svc *service.OrderService
}

func (h *OrderHTTP) Place(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.place")
	user := authmw.CurrentUser(c)

	order, err := h.Svc.PlaceOrder(ctx, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			l.Warn("place_order_failed", "status", http.StatusSeeOther, "reason", "empty cart")
			return h.flashRedirect(c, "error", "Your cart is empty.", "/user/cart")
		}
		return fail(l, "place_order", err)
	}

	h.publish(c, events.TopicOrder, order.OrderID, events.New("order.placed", map[string]any{
		"order_id":    order.OrderID,
		"user_id":     user.ID,
		"final_price": order.FinalPrice,
		"lines":       len(order.Lines),
		"payment_id":  order.PaymentID,
	}))
	l.Info("place_order_success", "order_id", order.OrderID)
	return h.flashRedirect(c, "success", "Order placed successfully with Cash on Delivery.", "/orders")
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	orders, err := h.Svc.List(ctx, authmw.CurrentUser(c).ID)
	if err != nil {
		return fail(l, "list_orders", err)
	}
	return h.render(c, "user/orders", "Your orders", orders)
}
