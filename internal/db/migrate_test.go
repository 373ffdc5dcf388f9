package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/clientportal/db"
	"github.com/garnizeh/clientportal/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	// Run again to ensure idempotency
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	applied, err := db.Applied(ctx, d)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(applied) != 2 || applied[0] != "0001_allowlist" {
		t.Fatalf("unexpected applied migrations: %v", applied)
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='allowlist'`).Scan(&name); err != nil {
		t.Fatalf("expected allowlist table exists: %v", err)
	}
}

func TestMigrate_AppliesOnlyNewFiles(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	first := fstest.MapFS{
		"migrations/0001_a.sql": {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
	}
	if err := db.Migrate(ctx, d, first); err != nil {
		t.Fatalf("first migrate: %v", err)
	}

	// 0001 would fail if re-executed because the table already exists
	second := fstest.MapFS{
		"migrations/0001_a.sql": {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"migrations/0002_b.sql": {Data: []byte(`CREATE TABLE b (id INTEGER); INSERT INTO b (id) VALUES (7);`)},
		"migrations/README.md":  {Data: []byte(`ignored`)},
	}
	if err := db.Migrate(ctx, d, second); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var id int
	if err := d.QueryRow(ctx, `SELECT id FROM b`).Scan(&id); err != nil || id != 7 {
		t.Fatalf("expected seeded row in b, got %d (%v)", id, err)
	}
}

func TestMigrate_BadSQL(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	bad := fstest.MapFS{"migrations/0001_bad.sql": {Data: []byte(`CREATE TABLE (`)}}
	if err := db.Migrate(ctx, d, bad); err == nil {
		t.Fatalf("expected error for invalid migration")
	}
	applied, err := db.Applied(ctx, d)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("failed migration must not be recorded, got %v", applied)
	}
}
