// Package static serves the allow-list from configuration when no database
// is configured. It is read-only.
package static

import (
	"context"
	"sort"
	"time"

	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

type Repo struct {
	users map[string]models.AuthorizedUser
}

var _ repository.UserRepo = (*Repo)(nil)

// New indexes entries by normalized email. Later duplicates win.
func New(entries []config.AllowlistEntry) *Repo {
	users := make(map[string]models.AuthorizedUser, len(entries))
	for _, e := range entries {
		email := repository.NormalizeEmail(e.Email)
		if email == "" {
			continue
		}
		users[email] = models.AuthorizedUser{
			Email:        email,
			Name:         e.Name,
			Company:      e.Company,
			CompanyID:    e.CompanyID,
			ContactID:    e.ContactID,
			PasswordHash: e.PasswordHash,
			Active:       !e.Disabled,
		}
	}
	return &Repo{users: users}
}

func (r *Repo) GetByEmail(_ context.Context, email string) (*models.AuthorizedUser, error) {
	u, ok := r.users[repository.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *Repo) List(context.Context) ([]models.AuthorizedUser, error) {
	out := make([]models.AuthorizedUser, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *Repo) Upsert(context.Context, *models.AuthorizedUser) error {
	return repository.ErrReadOnly
}

func (r *Repo) SetActive(context.Context, string, bool) error {
	return repository.ErrReadOnly
}

func (r *Repo) UpdatePassword(context.Context, string, string) error {
	return repository.ErrReadOnly
}

// RecordLogin is a no-op: there is nowhere to persist it.
func (r *Repo) RecordLogin(context.Context, string, time.Time) error {
	return nil
}
