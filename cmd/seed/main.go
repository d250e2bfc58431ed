package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

var demoProducts = []service.ProductInput{
	{Name: "Classic White Tee", Price: "19.99", Description: "Soft cotton crew neck t-shirt."},
	{Name: "Denim Jacket", Price: "79.50", Description: "Stonewashed denim with brass buttons."},
	{Name: "Leather Wallet", Price: "35", Description: "Slim bifold wallet in full-grain leather."},
	{Name: "Running Shoes", Price: "120", Description: "Lightweight trainers with a cushioned sole."},
	{Name: "Canvas Backpack", Price: "58.25", Description: "Water-resistant backpack with a laptop sleeve."},
	{Name: "Wool Beanie", Price: "14", Description: "Ribbed knit beanie for cold mornings."},
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel).With("service", "seed")
	ctx := logging.IntoContext(context.Background(), logger)

	db, err := config.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}
	r := repo.New(db)

	existing, err := r.ListProducts(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		catalog := &service.CatalogService{Repo: r}
		for _, in := range demoProducts {
			p, err := catalog.Create(ctx, in)
			if err != nil {
				return err
			}
			logger.Info("product_seeded", "product_id", p.ID, "name", p.Name)
		}
	} else {
		logger.Info("products_present", "count", len(existing))
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		auth := &service.AuthService{Repo: r, Tokens: &tokens.Issuer{Secret: cfg.SessionSecret, TTL: cfg.SessionTTL}}
		u, err := auth.EnsureAdmin(ctx, "admin", cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		logger.Info("admin_ready", "user_id", u.ID, "email", u.Email)
	}
	return nil
}
