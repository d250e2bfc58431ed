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

const msgNotAuthorized = "You are not authorized for this operation"

type ReviewHTTP struct {
	base
	Svc *service.ReviewService
}

func (h *ReviewHTTP) productURL(c echo.Context) string { return "/products/" + c.Param("id") }

// recoverable turns validation and ownership failures into a flash on the
// product page; everything else is terminal.
func (h *ReviewHTTP) recoverable(c echo.Context, op string, err error) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "review."+op)
	switch {
	case errors.Is(err, service.ErrForbidden):
		l.Warn(op+"_review_failed", "status", http.StatusSeeOther, "reason", "not the author")
		return h.flashRedirect(c, "login", msgNotAuthorized, h.productURL(c))
	case errors.Is(err, service.ErrValidation):
		l.Warn(op+"_review_failed", "status", http.StatusSeeOther, "reason", "invalid input", "error", err)
		return h.flashRedirect(c, "error", service.UserMessage(err, "Invalid review"), h.productURL(c))
	default:
		return fail(l, op+"_review", err)
	}
}

func (h *ReviewHTTP) input(c echo.Context) (service.ReviewInput, error) {
	var form reviewForm
	if err := bindForm(c, &form, "Rating must be between 1 and 5"); err != nil {
		return service.ReviewInput{}, err
	}
	return service.ReviewInput{Rating: form.Rating, Body: form.Body}, nil
}

func (h *ReviewHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	user := authmw.CurrentUser(c)

	in, err := h.input(c)
	if err != nil {
		return h.recoverable(c, "add", err)
	}
	rev, err := h.Svc.Add(ctx, user, c.Param("id"), in)
	if err != nil {
		return h.recoverable(c, "add", err)
	}

	h.publish(c, events.TopicProduct, rev.ProductID, events.New("review.added", map[string]any{
		"product_id": rev.ProductID, "review_id": rev.ID, "rating": rev.Rating,
	}))
	return h.flashRedirect(c, "success", "Your review was added successfully!", h.productURL(c))
}

func (h *ReviewHTTP) EditForm(c echo.Context) error {
	rev, err := h.Svc.GetForEdit(c.Request().Context(), authmw.CurrentUser(c), c.Param("id"), c.Param("rev_id"))
	if err != nil {
		return h.recoverable(c, "edit", err)
	}
	return h.render(c, "reviews/edit", "Edit review", rev)
}

func (h *ReviewHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()

	in, err := h.input(c)
	if err != nil {
		return h.recoverable(c, "update", err)
	}
	if _, err := h.Svc.Update(ctx, authmw.CurrentUser(c), c.Param("id"), c.Param("rev_id"), in); err != nil {
		return h.recoverable(c, "update", err)
	}
	return h.flashRedirect(c, "success", "Your review was updated successfully", h.productURL(c))
}

func (h *ReviewHTTP) Delete(c echo.Context) error {
	if err := h.Svc.Delete(c.Request().Context(), authmw.CurrentUser(c), c.Param("id"), c.Param("rev_id")); err != nil {
		return h.recoverable(c, "delete", err)
	}
	return h.flashRedirect(c, "success", "Your review was deleted successfully", h.productURL(c))
}
