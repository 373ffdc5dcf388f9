package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/clientportal/api"
	dbfs "github.com/garnizeh/clientportal/db"
	"github.com/garnizeh/clientportal/internal/auth"
	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/db"
	"github.com/garnizeh/clientportal/internal/notify"
	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/internal/repository/sqlstore"
	"github.com/garnizeh/clientportal/internal/repository/static"
	"github.com/garnizeh/clientportal/internal/storage"
	"github.com/garnizeh/clientportal/internal/validate"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/repository"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("service", "clientportal"))
	api.SetLogger(logger)
	crm.SetLogger(logger)

	logger.Info("starting client portal",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("environment", cfg.Environment))

	ctx := context.Background()

	// Allow-list store: a database when configured, else the static list
	users, closeUsers, err := openUsers(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open allow-list: %v", err)
	}

	client, err := crm.NewDefaultClient(crm.Config{
		BaseURL:     cfg.CRM.BaseURL,
		AccessToken: cfg.CRM.AccessToken,
		Timeout:     cfg.CRM.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create CRM client: %v", err)
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open provision storage: %v", err)
	}

	validator, err := validate.New()
	if err != nil {
		log.Fatalf("Failed to compile request schemas: %v", err)
	}

	svc := portal.New(client, portal.Options{
		CRM:                      cfg.CRM,
		MaxProvisionsPerCategory: cfg.MaxProvisionsPerCategory,
		Store:                    store,
		Logger:                   logger.With(slog.String("component", "portal")),
	})

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Users:     users,
		Portal:    svc,
		Issuer:    auth.NewIssuer(cfg.JWTSecret),
		Mailer:    notify.New(cfg.Mail, logger),
		Validator: validator,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout + cfg.CRM.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	if err := client.Close(); err != nil {
		logger.Warn("closing CRM client", slog.String("error", err.Error()))
	}
	if err := store.Close(); err != nil {
		logger.Warn("closing storage", slog.String("error", err.Error()))
	}
	closeUsers()

	logger.Info("server exited")
}

func openUsers(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.UserRepo, func(), error) {
	if cfg.AllowlistDSN == "" {
		logger.Info("using static allow-list", slog.Int("entries", len(cfg.Allowlist)))
		return static.New(cfg.Allowlist), func() {}, nil
	}

	conn, err := db.New(ctx, cfg.AllowlistDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	logger.Info("using database allow-list", slog.String("driver", conn.Driver()))
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("closing allow-list database", slog.String("error", err.Error()))
		}
	}
	return sqlstore.New(conn, logger), closeFn, nil
}
