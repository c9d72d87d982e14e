// Package authapi exposes login and registration over JSON and provides a
// client that speaks the same protocol.
package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Its-donkey/quill/internal/accounts"
	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/ratelimit"
	"github.com/Its-donkey/quill/logging"
)

const (
	LoginPath    = "/api/auth/login"
	RegisterPath = "/api/auth/register"
	MePath       = "/api/auth/me"

	maxBodyBytes = 64 << 10
)

// Reply is the success body.
type Reply struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    auth.User `json:"user"`
}

// ErrorReply is the failure body.
type ErrorReply struct {
	Error string `json:"error"`
}

// MeReply is the body of a successful token check.
type MeReply struct {
	User auth.User `json:"user"`
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Authenticator auth.Authenticator
	// Authorizer backs MePath. When nil the endpoint is not mounted.
	Authorizer auth.Authorizer
	Limiter    ratelimit.Limiter
	Attempts   int
	Window     time.Duration
	// Key derives the rate-limit key. It defaults to ratelimit.KeyIP.
	Key    ratelimit.KeyFunc
	Logger *logging.Logger
}

// Handler serves the login, register and token check endpoints.
type Handler struct {
	authn    auth.Authenticator
	authz    auth.Authorizer
	limiter  ratelimit.Limiter
	attempts int
	window   time.Duration
	key      ratelimit.KeyFunc
	logger   *logging.Logger
}

// NewHandler constructs a Handler.
func NewHandler(opts HandlerOptions) *Handler {
	key := opts.Key
	if key == nil {
		key = ratelimit.KeyIP
	}
	return &Handler{
		authn:    opts.Authenticator,
		authz:    opts.Authorizer,
		limiter:  opts.Limiter,
		attempts: opts.Attempts,
		window:   opts.Window,
		key:      key,
		logger:   opts.Logger,
	}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(LoginPath, h.rateLimited(h.handleLogin))
	mux.HandleFunc(RegisterPath, h.rateLimited(h.handleRegister))
	if h.authz != nil {
		mux.HandleFunc(MePath, h.handleMe)
	}
}

func (h *Handler) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if h.limiter != nil && h.attempts > 0 {
			key := h.key(r)
			decision := h.limiter.Allow(key+":"+r.URL.Path, h.attempts, h.window)
			ratelimit.ApplyHeaders(w, h.attempts, decision)
			if !decision.Allowed {
				h.logger.Warn("auth", "rate limit exceeded", map[string]any{"path": r.URL.Path, "key": key})
				writeError(w, http.StatusTooManyRequests, auth.ErrRateLimited.Error())
				return
			}
		}
		next(w, r)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.login(r, creds)
	h.reply(w, "login", session, err)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if err := decodeJSON(r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.register(r, reg)
	h.reply(w, "register", session, err)
}

// handleMe resolves the bearer token to its user.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, accounts.ErrInvalidCredentials.Error())
		return
	}
	user, err := h.authz.Authorize(r.Context(), token)
	if err != nil {
		status := StatusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			h.logger.Error("auth", "authorize failed", err, nil)
			msg = "internal error"
		}
		writeError(w, status, msg)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, MeReply{User: user})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func (h *Handler) login(r *http.Request, creds auth.Credentials) (auth.Session, error) {
	if h.authn == nil {
		return auth.Session{}, auth.ErrUnavailable
	}
	return h.authn.Login(r.Context(), creds)
}

func (h *Handler) register(r *http.Request, reg auth.Registration) (auth.Session, error) {
	if h.authn == nil {
		return auth.Session{}, auth.ErrUnavailable
	}
	return h.authn.Register(r.Context(), reg)
}

func (h *Handler) reply(w http.ResponseWriter, op string, session auth.Session, err error) {
	if err != nil {
		status := StatusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			h.logger.Error("auth", op+" failed", err, nil)
			msg = "internal error"
		}
		writeError(w, status, msg)
		return
	}
	h.logger.Info("auth", op+" succeeded", map[string]any{"user_id": session.User.ID})
	writeJSON(w, http.StatusOK, Reply{Message: session.Message, Token: session.Token, User: session.User})
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, accounts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, accounts.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorReply{Error: msg})
}
