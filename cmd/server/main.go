package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx := context.Background()
	db, err := config.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}

	publisher, err := events.Open(cfg.EventsBackend, cfg.KafkaBrokers, cfg.AMQPURL)
	if err != nil {
		return err
	}

	r := repo.New(db)

	var index search.Index = &search.SQL{Repo: r}
	if cfg.ESURL != "" {
		client, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "error", err)
		} else {
			index = search.NewElastic(client, cfg.ESIndex)
		}
	}

	var csrfCfg *csrf.Config
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.CookieSecure
		csrfCfg = &c
	}

	e, err := httpserver.New(&httpserver.Deps{
		Logger:         logger,
		Repo:           r,
		Auth:           &service.AuthService{Repo: r, Tokens: &tokens.Issuer{Secret: cfg.SessionSecret, TTL: cfg.SessionTTL}},
		Catalog:        &service.CatalogService{Repo: r, Index: index},
		Reviews:        &service.ReviewService{Repo: r},
		Cart:           &service.CartService{Repo: r},
		Orders:         &service.OrderService{Repo: r},
		Sessions:       web.NewSessions(cfg.SessionSecret, cfg.CookieSecure),
		Events:         publisher,
		CSRF:           csrfCfg,
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}

	if err := publisher.Close(); err != nil {
		logger.Error("events_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
	return nil
}
