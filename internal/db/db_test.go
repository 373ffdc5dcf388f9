package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	dbpkg "github.com/garnizeh/clientportal/internal/db"
)

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if d.GetConn() == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}
	if d.Driver() != dbpkg.DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", d.Driver())
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestExec_QueryRow_Query(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "items.db"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)`); err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	for _, name := range []string{"foo", "bar"} {
		if _, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, name); err != nil {
			t.Fatalf("Exec insert returned error: %v", err)
		}
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, 1).Scan(&name); err != nil {
		t.Fatalf("QueryRow scan returned error: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}

	rows, err := d.Query(ctx, `SELECT name FROM items ORDER BY id`)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, n)
	}
	if len(got) != 2 || got[1] != "bar" {
		t.Fatalf("unexpected rows: %v", got)
	}
}

func TestNew_BadDSN(t *testing.T) {
	ctx := context.Background()
	// a directory that does not exist cannot hold a database file
	_, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	if err == nil {
		t.Fatalf("expected error for bad DSN, got nil")
	}
}

func TestDriverFor(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/portal":   dbpkg.DriverPostgres,
		"POSTGRESQL://u@db/portal?sslmode=off":   dbpkg.DriverPostgres,
		"portal.db":                              dbpkg.DriverSQLite,
		"file:portal.db?_pragma=busy_timeout(5)": dbpkg.DriverSQLite,
		":memory:":                               dbpkg.DriverSQLite,
	}
	for dsn, want := range cases {
		if got := dbpkg.DriverFor(dsn); got != want {
			t.Errorf("DriverFor(%q) = %q, want %q", dsn, got, want)
		}
	}
}
