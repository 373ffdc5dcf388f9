package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	dbfs "github.com/garnizeh/clientportal/db"
	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/db"
)

// TestMigrateOnStart_TempWorkdir drives the same sequence cmd/server runs on
// start: load config, validate, open the allow-list store and migrate it.
func TestMigrateOnStart_TempWorkdir(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "allowlist.db")

	cfgY := "addr: \":0\"\n" +
		"environment: development\n" +
		"allowlist_dsn: '" + dbPath + "'\n" +
		"crm:\n  objects:\n    job_orders: \"2-1\"\n    applications: \"2-2\"\n"

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgY), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, cfg.APITimeout)
	defer dbCancel()

	d, err := db.New(dbCtx, cfg.AllowlistDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(dbCtx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file on disk: %v", err)
	}
}
