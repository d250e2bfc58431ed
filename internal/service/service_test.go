package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type env struct {
	repo    *repo.GormRepo
	auth    *AuthService
	catalog *CatalogService
	reviews *ReviewService
	cart    *CartService
	orders  *OrderService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	r := repo.New(testutil.NewDB(t))
	return &env{
		repo:    r,
		auth:    &AuthService{Repo: r, Tokens: &tokens.Issuer{Secret: []byte("test"), TTL: time.Hour}},
		catalog: &CatalogService{Repo: r},
		reviews: &ReviewService{Repo: r},
		cart:    &CartService{Repo: r},
		orders:  &OrderService{Repo: r},
	}
}

func (e *env) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Username: name, Email: name + "@shop.test", Password: "secret1"})
	require.NoError(t, err)
	return u
}

func (e *env) product(t *testing.T, name, price string) *models.Product {
	t.Helper()
	p, err := e.catalog.Create(context.Background(), ProductInput{Name: name, Price: price, Description: name + " description"})
	require.NoError(t, err)
	return p
}
