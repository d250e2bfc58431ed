package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/util"
)

const MaxPrice = 100000

type CatalogService struct {
	Repo  *repo.GormRepo
	Index search.Index
}

type ProductInput struct {
	Name        string
	Price       string
	Description string
	Image       Upload
}

type SearchResult struct {
	Query string
	Total int64
	Items []models.Product
	Page  int
	Size  int
	Pages int
}

// ParsePrice accepts a finite decimal in [0, MaxPrice].
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("Price is required")
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, invalid("Price must be a number")
	}
	if p < 0 {
		return 0, invalid("Price cannot be negative")
	}
	if p > MaxPrice {
		return 0, invalid("Price cannot exceed %d", MaxPrice)
	}
	return p, nil
}

func (s *CatalogService) buildProduct(in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("Name is required")
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	return &models.Product{
		Name:        name,
		Price:       price,
		Description: strings.TrimSpace(in.Description),
		Image:       in.Image.Data,
		ImageType:   in.Image.ContentType,
	}, nil
}

func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *CatalogService) ListWithReviews(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProductsWithReviews(ctx)
}

func (s *CatalogService) Get(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) Detail(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.Repo.GetProductWithReviews(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) Image(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.Repo.GetProductImage(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if len(p.Image) == 0 {
		return nil, fmt.Errorf("product image: %w", ErrNotFound)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p, err := s.buildProduct(in)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.reindex(ctx, p)
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, rawID string, in ProductInput) (*models.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.buildProduct(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.Repo.UpdateProduct(ctx, p); err != nil {
		return nil, notFound(err, "product")
	}
	updated, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	s.reindex(ctx, updated)
	return updated, nil
}

// Delete returns the removed product so callers can name it.
func (s *CatalogService) Delete(ctx context.Context, rawID string) (*models.Product, error) {
	p, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.DeleteProduct(ctx, p.ID); err != nil {
		return nil, notFound(err, "product")
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, p.ID); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "product_id", p.ID, "error", err)
		}
	}
	return p, nil
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}

// Search queries the index and falls back to the database when it fails.
func (s *CatalogService) Search(ctx context.Context, q string, page, size int) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	from, limit := util.Calculate(page, size)
	res := &SearchResult{Query: q, Page: from/limit + 1, Size: limit}
	if q == "" {
		return res, nil
	}

	var (
		total int64
		items []models.Product
		err   error
	)
	if s.Index != nil {
		total, items, err = s.Index.Search(ctx, q, from, limit)
		if err != nil {
			logging.FromContext(ctx).Warn("search_index_unavailable", "error", err)
		}
	}
	if s.Index == nil || err != nil {
		total, items, err = s.Repo.SearchProducts(ctx, q, from, limit)
		if err != nil {
			return nil, err
		}
	}

	res.Total = total
	res.Items = items
	res.Pages = util.Pages(total, limit)
	return res, nil
}
