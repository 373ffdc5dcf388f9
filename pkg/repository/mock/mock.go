package mock

import (
	"context"
	"sync"
	"time"

	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	UserRepo *MockUserRepo
}

func NewMocks() *Mocks {
	return &Mocks{UserRepo: NewUserRepo()}
}

// MockUserRepo is an in-memory repository.UserRepo. Set GetErr or WriteErr to
// force failures.
type MockUserRepo struct {
	mu       sync.Mutex
	Users    map[string]models.AuthorizedUser
	GetErr   error
	WriteErr error
	Logins   []string
}

var _ repository.UserRepo = (*MockUserRepo)(nil)

func NewUserRepo(users ...models.AuthorizedUser) *MockUserRepo {
	m := &MockUserRepo{Users: map[string]models.AuthorizedUser{}}
	for _, u := range users {
		u.Email = repository.NormalizeEmail(u.Email)
		m.Users[u.Email] = u
	}
	return m
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*models.AuthorizedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	u, ok := m.Users[repository.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MockUserRepo) List(ctx context.Context) ([]models.AuthorizedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuthorizedUser, 0, len(m.Users))
	for _, u := range m.Users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MockUserRepo) Upsert(ctx context.Context, u *models.AuthorizedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	c := *u
	c.Email = repository.NormalizeEmail(c.Email)
	m.Users[c.Email] = c
	return nil
}

func (m *MockUserRepo) SetActive(ctx context.Context, email string, active bool) error {
	return m.mutate(email, func(u *models.AuthorizedUser) { u.Active = active })
}

func (m *MockUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return m.mutate(email, func(u *models.AuthorizedUser) { u.PasswordHash = passwordHash })
}

func (m *MockUserRepo) RecordLogin(ctx context.Context, email string, at time.Time) error {
	err := m.mutate(email, func(u *models.AuthorizedUser) { u.LastLogin = at.UnixMilli() })
	if err == nil {
		m.mu.Lock()
		m.Logins = append(m.Logins, repository.NormalizeEmail(email))
		m.mu.Unlock()
	}
	return err
}

func (m *MockUserRepo) mutate(email string, fn func(u *models.AuthorizedUser)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	key := repository.NormalizeEmail(email)
	u, ok := m.Users[key]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	m.Users[key] = u
	return nil
}
