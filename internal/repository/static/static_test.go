package static_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/repository/static"
	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

func TestStaticRepo(t *testing.T) {
	ctx := context.Background()
	repo := static.New([]config.AllowlistEntry{
		{Email: " Ops@Acme.Example ", Name: "Ops", CompanyID: "77", PasswordHash: "h"},
		{Email: "gone@acme.example", Disabled: true},
		{Email: ""},
	})

	u, err := repo.GetByEmail(ctx, "ops@acme.example")
	if err != nil || u == nil {
		t.Fatalf("expected user, got %v %v", u, err)
	}
	if !u.Active || u.CompanyID != "77" || u.Email != "ops@acme.example" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if u, _ := repo.GetByEmail(ctx, "gone@acme.example"); u == nil || u.Active {
		t.Fatalf("disabled entry should be listed but inactive: %+v", u)
	}
	if u, err := repo.GetByEmail(ctx, "nobody@acme.example"); u != nil || err != nil {
		t.Fatalf("expected nil, nil for unknown email, got %v %v", u, err)
	}

	all, _ := repo.List(ctx)
	if len(all) != 2 || all[0].Email != "gone@acme.example" {
		t.Fatalf("unexpected list: %+v", all)
	}

	if err := repo.Upsert(ctx, &models.AuthorizedUser{Email: "x@y.z"}); !errors.Is(err, repository.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := repo.SetActive(ctx, "ops@acme.example", false); !errors.Is(err, repository.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := repo.UpdatePassword(ctx, "ops@acme.example", "h2"); !errors.Is(err, repository.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := repo.RecordLogin(ctx, "ops@acme.example", time.Now()); err != nil {
		t.Fatalf("RecordLogin should be a no-op, got %v", err)
	}
}
