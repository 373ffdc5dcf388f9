package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/garnizeh/clientportal/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

var (
	// ErrReadOnly is returned by allow-list stores that cannot be written,
	// such as the static list loaded from configuration.
	ErrReadOnly = errors.New("repository: allow-list is read-only")
	// ErrNotFound is returned when a mutation targets an email that is not
	// on the allow-list.
	ErrNotFound = errors.New("repository: not found")
)

// UserRepo stores the authorized-user allow-list. GetByEmail returns nil, nil
// when the email is not listed.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*models.AuthorizedUser, error)
	List(ctx context.Context) ([]models.AuthorizedUser, error)
	Upsert(ctx context.Context, u *models.AuthorizedUser) error
	SetActive(ctx context.Context, email string, active bool) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	RecordLogin(ctx context.Context, email string, at time.Time) error
}

// NormalizeEmail is the canonical allow-list key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
