// Package auth holds the authentication state shared by the UI and the
// asynchronous login/register actions that update it.
package auth

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Authenticators that cannot reach their backend.
var ErrUnavailable = errors.New("auth: service unavailable")

// ErrRateLimited is returned when a caller has used up its login and
// register attempts for the current window.
var ErrRateLimited error = NewUserError("Too many attempts. Please wait and try again.")

// UserError is an error whose text is written for the visitor. Err, when set,
// is the sentinel it refines, so errors.Is still matches it.
type UserError struct {
	Message string
	Err     error
}

// NewUserError returns a UserError with the given text.
func NewUserError(message string) *UserError {
	return &UserError{Message: message}
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the visitor.
func (e *UserError) UserMessage() string { return e.Message }

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register payload. Lastname is deliberately absent.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the public view of an account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is what a successful login or registration yields.
type Session struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Authenticator performs the actual credential checks behind the store.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	Register(ctx context.Context, reg Registration) (Session, error)
}

// Authorizer resolves a session token back to the user it was issued for.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (User, error)
}

// Action is a unit of work dispatched to a Store. The set is closed: Login and Register.
type Action interface {
	isAction()
}

// Login asks the store to authenticate existing credentials.
type Login struct {
	Email    string
	Password string
}

// Register asks the store to create an account.
type Register struct {
	Name     string
	Email    string
	Password string
}

func (Login) isAction()    {}
func (Register) isAction() {}

// Dispatcher sends an action to a store without waiting for its outcome.
type Dispatcher func(Action)

// State is a read-only snapshot of the authentication state.
type State struct {
	IsLoading       bool   `json:"isLoading"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            User   `json:"user"`
	Token           string `json:"-"`
}
