package httpserver

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type SearchHTTP struct {
	base
	Catalog *service.CatalogService
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *SearchHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.products")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Catalog.Search(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "search", err)
	}
	l.Info("search_success", "query", res.Query, "total", res.Total)
	return h.render(c, "search/results", "Search", res)
}
