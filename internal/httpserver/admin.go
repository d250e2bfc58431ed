package httpserver

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeaders = []string{"ID", "Name", "Price", "Description", "Reviews", "CreatedAt", "UpdatedAt"}

type AdminHTTP struct {
	base
	Catalog *service.CatalogService
}

func (h *AdminHTTP) Products(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "admin.products")
	items, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		return fail(l, "list_products", err)
	}
	return h.render(c, "admin/products", "Manage products", items)
}

func buildWorkbook(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, hdr := range exportHeaders {
		headerRow.AddCell().SetValue(hdr)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetFloat(p.Price)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetInt(len(p.Reviews))
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

func (h *AdminHTTP) Export(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.export")

	products, err := h.Catalog.ListWithReviews(ctx)
	if err != nil {
		return fail(l, "export_products", err)
	}
	file, err := buildWorkbook(products)
	if err != nil {
		return fail(l, "export_products", err)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return fail(l, "export_products", err)
	}

	l.Info("export_products_success", "rows", len(products))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "products.xlsx"))
	c.Response().Header().Set("Expires", "0")
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
