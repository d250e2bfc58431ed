package search

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Index interface {
	Index(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type ProductSearcher interface {
	SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error)
}

// SQL answers queries straight from the products table; indexing is a no-op.
type SQL struct {
	Repo ProductSearcher
}

func (s *SQL) Index(context.Context, *models.Product) error { return nil }
func (s *SQL) Delete(context.Context, string) error          { return nil }

func (s *SQL) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	return s.Repo.SearchProducts(ctx, query, from, size)
}
