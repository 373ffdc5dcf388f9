package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/garnizeh/clientportal/internal/db"
	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

// Repo implements repository.UserRepo on the internal DB wrapper. The same
// queries run on sqlite and Postgres.
type Repo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure Repo implements the public interface.
var _ repository.UserRepo = (*Repo)(nil)

func New(conn *db.DB, logger *slog.Logger) *Repo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &Repo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

const selectUser = `SELECT email, name, company, company_id, contact_id, password_hash, active, created, updated, last_login FROM allowlist`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.AuthorizedUser, error) {
	var u models.AuthorizedUser
	var active int
	if err := s.Scan(&u.Email, &u.Name, &u.Company, &u.CompanyID, &u.ContactID, &u.PasswordHash, &active, &u.Created, &u.Updated, &u.LastLogin); err != nil {
		return nil, err
	}
	u.Active = active != 0
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*models.AuthorizedUser, error) {
	row := r.conn.QueryRow(ctx, selectUser+` WHERE email = ?`, repository.NormalizeEmail(email))
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *Repo) List(ctx context.Context) ([]models.AuthorizedUser, error) {
	rows, err := r.conn.Query(ctx, selectUser+` ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuthorizedUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Upsert inserts the user or replaces every field of an existing entry. An
// empty PasswordHash keeps the stored hash.
func (r *Repo) Upsert(ctx context.Context, u *models.AuthorizedUser) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}
	email := repository.NormalizeEmail(u.Email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO allowlist (email, name, company, company_id, contact_id, password_hash, active, created, updated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
	name = excluded.name,
	company = excluded.company,
	company_id = excluded.company_id,
	contact_id = excluded.contact_id,
	password_hash = CASE WHEN excluded.password_hash = '' THEN allowlist.password_hash ELSE excluded.password_hash END,
	active = excluded.active,
	updated = excluded.updated`,
		email, u.Name, u.Company, u.CompanyID, u.ContactID, u.PasswordHash, boolInt(u.Active), ts, ts)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", email, err)
	}
	r.logger.Info("allowlist: upsert", slog.String("email", email), slog.Bool("active", u.Active))
	return nil
}

func (r *Repo) SetActive(ctx context.Context, email string, active bool) error {
	return r.update(ctx, `UPDATE allowlist SET active = ?, updated = ? WHERE email = ?`, email, boolInt(active), now())
}

func (r *Repo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return r.update(ctx, `UPDATE allowlist SET password_hash = ?, updated = ? WHERE email = ?`, email, passwordHash, now())
}

func (r *Repo) RecordLogin(ctx context.Context, email string, at time.Time) error {
	return r.update(ctx, `UPDATE allowlist SET last_login = ? WHERE email = ?`, email, at.UTC().UnixMilli())
}

// update runs a single-row UPDATE whose last placeholder is the email.
func (r *Repo) update(ctx context.Context, query, email string, args ...any) error {
	email = repository.NormalizeEmail(email)
	res, err := r.conn.Exec(ctx, query, append(args, email)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
