package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Its-donkey/quill/logging"
)

const defaultActionTimeout = 10 * time.Second

// Options configures a Store.
type Options struct {
	Authenticator Authenticator
	Timeout       time.Duration
	Logger        *logging.Logger
}

// Store owns one visitor's authentication state. State changes only through
// Dispatch and Logout; readers take snapshots.
type Store struct {
	backend Authenticator
	timeout time.Duration
	logger  *logging.Logger

	mu     sync.RWMutex
	state  State
	subs   map[int]func(State)
	nextID int

	inflight sync.WaitGroup
}

// NewStore constructs a Store backed by opts.Authenticator.
func NewStore(opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultActionTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Store{
		backend: opts.Authenticator,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		subs:    make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch starts the action in the background and returns immediately.
// Each action calls the Authenticator exactly once.
func (s *Store) Dispatch(action Action) {
	if action == nil {
		return
	}
	s.update(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(action)
	}()
}

// Dispatcher returns Dispatch as a Dispatcher value.
func (s *Store) Dispatcher() Dispatcher {
	return s.Dispatch
}

// Wait blocks until every dispatched action has finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// Reject records err as the outcome of an action that was refused before it
// reached the Authenticator.
func (s *Store) Reject(err error) {
	if err == nil {
		return
	}
	s.update(func(st *State) {
		st.IsLoading = false
		st.Error = errorText(err)
	})
}

// Logout clears the authenticated session.
func (s *Store) Logout() {
	s.update(func(st *State) {
		*st = State{IsLoading: st.IsLoading}
	})
}

// Subscribe registers fn for every state change. The returned func unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) run(action Action) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var (
		session Session
		err     error
		kind    string
		email   string
	)
	switch a := action.(type) {
	case Login:
		kind, email = "login", a.Email
		if s.backend == nil {
			err = ErrUnavailable
			break
		}
		session, err = s.backend.Login(ctx, Credentials{Email: a.Email, Password: a.Password})
	case Register:
		kind, email = "register", a.Email
		if s.backend == nil {
			err = ErrUnavailable
			break
		}
		session, err = s.backend.Register(ctx, Registration{Name: a.Name, Email: a.Email, Password: a.Password})
	}

	if err != nil {
		s.logger.Warn("auth", kind+" failed", map[string]any{"email": email, "error": err.Error()})
		s.update(func(st *State) {
			st.IsLoading = false
			st.Error = errorText(err)
		})
		return
	}
	s.logger.Info("auth", kind+" succeeded", map[string]any{"email": email, "user_id": session.User.ID})
	s.update(func(st *State) {
		st.IsLoading = false
		st.Error = ""
		st.IsAuthenticated = true
		st.Message = session.Message
		st.User = session.User
		st.Token = session.Token
	})
}

func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	next := s.state
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

const genericErrorText = "Something went wrong. Please try again."

// errorText turns err into text for the modal. Only errors that carry a
// visitor message are shown verbatim.
func errorText(err error) string {
	var visible interface{ UserMessage() string }
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The authentication service timed out. Please try again."
	case errors.Is(err, ErrUnavailable):
		return "Authentication is currently unavailable."
	case errors.As(err, &visible):
		return visible.UserMessage()
	default:
		return genericErrorText
	}
}
