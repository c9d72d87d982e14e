// Package accounts stores user accounts and issues session tokens for them.
package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Its-donkey/quill/internal/auth"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials error = auth.NewUserError("Invalid email or password.")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken error = auth.NewUserError("An account with this email already exists.")
	// ErrInvalidInput is returned when required registration or login fields are missing
	// or malformed. Refinements wrap it with a more specific message.
	ErrInvalidInput error = auth.NewUserError("Please fill in all required fields.")
	// ErrNotFound is returned by repositories when no user matches.
	ErrNotFound = errors.New("accounts: not found")
)

// Account is a stored user.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Repository persists accounts.
type Repository interface {
	CreateAccount(ctx context.Context, a *Account) error
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

var _ Repository = (*MemoryRepository)(nil)

// CreateAccount stores a copy of a.
func (r *MemoryRepository) CreateAccount(_ context.Context, a *Account) error {
	key := NormalizeEmail(a.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[key]; exists {
		return ErrEmailTaken
	}
	stored := *a
	stored.PasswordHash = append([]byte(nil), a.PasswordHash...)
	r.byID[a.ID] = &stored
	r.byEmail[key] = a.ID
	return nil
}

// AccountByEmail looks an account up by email, ignoring case.
func (r *MemoryRepository) AccountByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	a := *r.byID[id]
	return &a, nil
}

// AccountByID looks an account up by id.
func (r *MemoryRepository) AccountByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}
