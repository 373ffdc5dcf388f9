package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	dbfs "github.com/garnizeh/clientportal/db"
	dbpkg "github.com/garnizeh/clientportal/internal/db"
	"github.com/garnizeh/clientportal/internal/repository/sqlstore"
	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

func setupRepo(t *testing.T) *sqlstore.Repo {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "allowlist.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlstore.New(d, nil)
}

func TestAllowlistCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, nil); err == nil {
		t.Fatalf("expected error when upserting nil user")
	}
	if err := repo.Upsert(ctx, &models.AuthorizedUser{Email: "  "}); err == nil {
		t.Fatalf("expected error when upserting empty email")
	}

	got, err := repo.GetByEmail(ctx, "missing@acme.example")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for unknown email, got %v %v", got, err)
	}

	u := &models.AuthorizedUser{Email: "Client@Acme.Example", Name: "Client", Company: "Acme", CompanyID: "77", PasswordHash: "hash1", Active: true}
	if err := repo.Upsert(ctx, u); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err = repo.GetByEmail(ctx, "client@acme.example")
	if err != nil || got == nil {
		t.Fatalf("GetByEmail: %v %v", got, err)
	}
	if got.Email != "client@acme.example" || !got.Active || got.PasswordHash != "hash1" || got.Created == 0 {
		t.Fatalf("unexpected stored user: %+v", got)
	}

	// upsert without a hash keeps the existing one
	if err := repo.Upsert(ctx, &models.AuthorizedUser{Email: "client@acme.example", Name: "Renamed", Active: true}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, _ = repo.GetByEmail(ctx, "client@acme.example")
	if got.Name != "Renamed" || got.PasswordHash != "hash1" {
		t.Fatalf("unexpected user after upsert: %+v", got)
	}

	if err := repo.SetActive(ctx, "CLIENT@acme.example", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	got, _ = repo.GetByEmail(ctx, "client@acme.example")
	if got.Active {
		t.Fatalf("expected inactive user")
	}

	if err := repo.UpdatePassword(ctx, "client@acme.example", "hash2"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if err := repo.UpdatePassword(ctx, "client@acme.example", ""); err == nil {
		t.Fatalf("expected error for empty hash")
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := repo.RecordLogin(ctx, "client@acme.example", at); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	got, _ = repo.GetByEmail(ctx, "client@acme.example")
	if got.PasswordHash != "hash2" || got.LastLogin != at.UnixMilli() {
		t.Fatalf("unexpected user after updates: %+v", got)
	}

	if err := repo.SetActive(ctx, "nobody@acme.example", true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAllowlistList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, e := range []string{"b@x.example", "a@x.example", "c@x.example"} {
		if err := repo.Upsert(ctx, &models.AuthorizedUser{Email: e, Active: true}); err != nil {
			t.Fatalf("Upsert %s: %v", e, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Email != "a@x.example" || all[2].Email != "c@x.example" {
		t.Fatalf("unexpected list order: %+v", all)
	}
}
