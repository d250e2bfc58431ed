package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

type CatalogHTTP struct {
	base
	Svc            *service.CatalogService
	MaxUploadBytes int64
}

func (h *CatalogHTTP) Index(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product.index")
	items, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return fail(l, "list_products", err)
	}
	return h.render(c, "products/index", "Products", items)
}

func (h *CatalogHTTP) Show(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product.show")
	p, err := h.Svc.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(l, "get_product", err)
	}
	return h.render(c, "products/show", p.Name, p)
}

func (h *CatalogHTTP) Image(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product.image")
	p, err := h.Svc.Image(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(l, "get_product_image", err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=300")
	return c.Blob(http.StatusOK, p.ImageType, p.Image)
}

func (h *CatalogHTTP) NewForm(c echo.Context) error {
	return h.render(c, "products/new", "New product", nil)
}

func (h *CatalogHTTP) input(c echo.Context) (service.ProductInput, error) {
	var form productForm
	if err := bindForm(c, &form, "Invalid product form"); err != nil {
		return service.ProductInput{}, err
	}
	img, err := readUpload(c, "image", h.MaxUploadBytes)
	if err != nil {
		return service.ProductInput{}, err
	}
	return service.ProductInput{Name: form.Name, Price: form.Price, Description: form.Description, Image: img}, nil
}

func (h *CatalogHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var p *models.Product
	in, err := h.input(c)
	if err == nil {
		p, err = h.Svc.Create(ctx, in)
	}
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("create_product_failed", "status", http.StatusSeeOther, "reason", "invalid input", "error", err)
			return h.flashRedirect(c, "error", service.UserMessage(err, "Invalid product"), "/products/new")
		}
		return fail(l, "create_product", err)
	}

	h.publish(c, events.TopicProduct, p.ID, events.New("product.created", map[string]any{"product_id": p.ID, "name": p.Name, "price": p.Price}))
	l.Info("create_product_success", "product_id", p.ID)
	return h.flashRedirect(c, "status", "Item Added Successfully!", "/admin/products")
}

func (h *CatalogHTTP) EditForm(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product.edit_form")
	p, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(l, "get_product", err)
	}
	return h.render(c, "products/edit", "Edit "+p.Name, p)
}

func (h *CatalogHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")
	id := c.Param("id")

	var p *models.Product
	in, err := h.input(c)
	if err == nil {
		p, err = h.Svc.Update(ctx, id, in)
	}
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("update_product_failed", "status", http.StatusSeeOther, "reason", "invalid input", "error", err)
			return h.flashRedirect(c, "error", service.UserMessage(err, "Invalid product"), "/products/"+id+"/edit")
		}
		return fail(l, "update_product", err)
	}

	h.publish(c, events.TopicProduct, p.ID, events.New("product.updated", map[string]any{"product_id": p.ID, "name": p.Name, "price": p.Price}))
	l.Info("update_product_success", "product_id", p.ID)
	return h.flashRedirect(c, "status", "Item details updated successfully", "/admin/products")
}

func (h *CatalogHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	p, err := h.Svc.Delete(ctx, c.Param("id"))
	if err != nil {
		return fail(l, "delete_product", err)
	}
	h.publish(c, events.TopicProduct, p.ID, events.New("product.deleted", map[string]any{"product_id": p.ID}))
	l.Info("delete_product_success", "product_id", p.ID)
	return h.flashRedirect(c, "status", fmt.Sprintf(`The item "%s" was deleted successfully`, p.Name), "/admin/products")
}
