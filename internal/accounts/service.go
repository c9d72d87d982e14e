package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/logging"
)

const (
	loginMessage    = "Login successful!"
	registerMessage = "Registration successful!"
	minPasswordLen  = 6

	// bcrypt only reads the first 72 bytes of a password.
	maxPasswordBytes = 72
)

// Options configures a Service.
type Options struct {
	Repository Repository
	Secret     string
	TokenTTL   time.Duration
	Logger     *logging.Logger
	// Cost overrides the bcrypt cost. Zero means bcrypt.DefaultCost.
	Cost int
	// Now is the clock used to issue and check tokens. Nil means time.Now.
	Now func() time.Time
}

// Service checks credentials and issues tokens. It implements auth.Authenticator.
type Service struct {
	repo   Repository
	secret string
	ttl    time.Duration
	cost   int
	logger *logging.Logger
	now    func() time.Time
}

var (
	_ auth.Authenticator = (*Service)(nil)
	_ auth.Authorizer    = (*Service)(nil)
)

// NewService constructs a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Repository == nil {
		return nil, errors.New("accounts: repository is required")
	}
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, errors.New("accounts: token secret is required")
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   opts.Repository,
		secret: opts.Secret,
		ttl:    ttl,
		cost:   cost,
		logger: opts.Logger,
		now:    now,
	}, nil
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, reg auth.Registration) (auth.Session, error) {
	name := strings.TrimSpace(reg.Name)
	email := NormalizeEmail(reg.Email)
	if name == "" || email == "" || reg.Password == "" {
		return auth.Session{}, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return auth.Session{}, ErrInvalidInput
	}
	if len(reg.Password) < minPasswordLen {
		return auth.Session{}, invalidInput(fmt.Sprintf("Passwords need at least %d characters.", minPasswordLen))
	}
	if len(reg.Password) > maxPasswordBytes {
		return auth.Session{}, invalidInput(fmt.Sprintf("Passwords can be at most %d bytes.", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		s.logger.Error("accounts", "hash password failed", err, nil)
		return auth.Session{}, fmt.Errorf("hash password: %w", err)
	}
	account := &Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return auth.Session{}, ErrEmailTaken
		}
		s.logger.Error("accounts", "create account failed", err, nil)
		return auth.Session{}, auth.ErrUnavailable
	}
	s.logger.Info("accounts", "user registered", map[string]any{"user_id": account.ID})
	return s.session(account, registerMessage)
}

// Login checks the credentials of an existing account.
func (s *Service) Login(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return auth.Session{}, ErrInvalidInput
	}
	account, err := s.repo.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Session{}, ErrInvalidCredentials
		}
		s.logger.Error("accounts", "lookup account failed", err, nil)
		return auth.Session{}, auth.ErrUnavailable
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(creds.Password)); err != nil {
		s.logger.Warn("accounts", "password mismatch", map[string]any{"user_id": account.ID})
		return auth.Session{}, ErrInvalidCredentials
	}
	s.logger.Info("accounts", "user logged in", map[string]any{"user_id": account.ID})
	return s.session(account, loginMessage)
}

// Authorize validates a token and returns the account it was issued for.
func (s *Service) Authorize(ctx context.Context, token string) (auth.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return auth.User{}, ErrInvalidCredentials
	}
	claims, err := parseToken(trimmed, s.secret, s.now)
	if err != nil {
		return auth.User{}, ErrInvalidCredentials
	}
	account, err := s.repo.AccountByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.User{}, ErrInvalidCredentials
		}
		s.logger.Error("accounts", "load account failed", err, map[string]any{"user_id": claims.UserID})
		return auth.User{}, auth.ErrUnavailable
	}
	return publicUser(account), nil
}

func (s *Service) session(a *Account, message string) (auth.Session, error) {
	token, err := GenerateToken(a.ID, s.secret, s.ttl, s.now())
	if err != nil {
		return auth.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return auth.Session{User: publicUser(a), Token: token, Message: message}, nil
}

func invalidInput(message string) error {
	return &auth.UserError{Message: message, Err: ErrInvalidInput}
}

func publicUser(a *Account) auth.User {
	return auth.User{ID: a.ID, Name: a.Name, Email: a.Email}
}
