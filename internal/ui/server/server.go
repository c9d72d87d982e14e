// Package server renders the blog site: the document shell, the article
// detail page, the admin panel and the login/register modal.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/authapi"
	"github.com/Its-donkey/quill/internal/posts"
	"github.com/Its-donkey/quill/internal/ratelimit"
	"github.com/Its-donkey/quill/logging"
)

// Options configures the UI HTTP server.
type Options struct {
	Listen       string
	TemplatesDir string
	AssetsDir    string
	LogPath      string
	SiteName     string
	Logger       *logging.Logger
	Templates    map[string]*template.Template

	// Authenticator backs every visitor's auth store. When nil, login and
	// register fail with "Authentication is currently unavailable."
	Authenticator auth.Authenticator
	// APIAuthenticator backs /api/auth/*. It defaults to Authenticator.
	APIAuthenticator auth.Authenticator
	// Authorizer re-checks the session token before admin pages are served.
	// It defaults to Authenticator when that also implements auth.Authorizer.
	Authorizer auth.Authorizer
	// APIAuthorizer backs /api/auth/me. It defaults to Authorizer.
	APIAuthorizer auth.Authorizer
	Posts         posts.Store
	// Limiter counts login and register attempts from the modal and the API.
	// A nil Limiter gets an in-memory one owned by the server.
	Limiter      ratelimit.Limiter
	RateAttempts int
	RateWindow   time.Duration
	// ClientKey identifies a client for rate limiting. It defaults to
	// ratelimit.KeyIP.
	ClientKey     ratelimit.KeyFunc
	SessionTTL    time.Duration
	MaxSessions   int
	ActionTimeout time.Duration
}

type server struct {
	assetsDir     string
	logPath       string
	stylesPath    string
	siteName      string
	currentYear   int
	templates     map[string]*template.Template
	logger        *logging.Logger
	posts         posts.Store
	sessions      *sessionManager
	authAPI       *authapi.Handler
	authz         auth.Authorizer
	limiter       ratelimit.Limiter
	ownsLimiter   bool
	rateAttempts  int
	rateWindow    time.Duration
	clientKey     ratelimit.KeyFunc
	actionTimeout time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// Run starts the UI HTTP server and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, opts Options) error {
	opts = applyDefaults(opts)

	srv, err := newServer(opts)
	if err != nil {
		return err
	}
	defer srv.close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go srv.sessions.sweepLoop(sweepCtx, time.Minute)

	server := &http.Server{
		Addr:              opts.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	srv.logger.Info("server", "serving UI", map[string]any{"listen": opts.Listen, "site": srv.siteName})

	select {
	case <-ctx.Done():
		srv.beginShutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			srv.logger.Error("server", "shutdown failed", err, nil)
		}
		srv.sessions.wait()
		srv.logger.Info("server", "stopped", nil)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	}
}

func newServer(opts Options) (*server, error) {
	opts = applyDefaults(opts)

	tmpl := opts.Templates
	if tmpl == nil {
		loaded, err := loadTemplates(opts.TemplatesDir)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		tmpl = loaded
	}

	assetsPath := opts.AssetsDir
	if assetsPath != "" {
		abs, err := filepath.Abs(assetsPath)
		if err != nil {
			return nil, fmt.Errorf("resolve assets dir: %w", err)
		}
		assetsPath = abs
	}

	logger := opts.Logger
	apiAuth := opts.APIAuthenticator
	if apiAuth == nil {
		apiAuth = opts.Authenticator
	}
	authz := opts.Authorizer
	if authz == nil {
		authz, _ = opts.Authenticator.(auth.Authorizer)
	}
	apiAuthz := opts.APIAuthorizer
	if apiAuthz == nil {
		apiAuthz = authz
	}
	clientKey := opts.ClientKey
	if clientKey == nil {
		clientKey = ratelimit.KeyIP
	}
	limiter, ownsLimiter := opts.Limiter, false
	if limiter == nil && opts.RateAttempts > 0 {
		limiter, ownsLimiter = ratelimit.NewMemory(), true
	}

	return &server{
		assetsDir:     assetsPath,
		logPath:       opts.LogPath,
		stylesPath:    "/styles.css",
		siteName:      opts.SiteName,
		currentYear:   time.Now().Year(),
		templates:     tmpl,
		logger:        logger,
		posts:         opts.Posts,
		authz:         authz,
		limiter:       limiter,
		ownsLimiter:   ownsLimiter,
		rateAttempts:  opts.RateAttempts,
		rateWindow:    opts.RateWindow,
		clientKey:     clientKey,
		actionTimeout: opts.ActionTimeout,
		closing:       make(chan struct{}),
		sessions: newSessionManager(sessionOptions{
			TTL: opts.SessionTTL,
			Max: opts.MaxSessions,
			NewStore: func() *auth.Store {
				return auth.NewStore(auth.Options{
					Authenticator: opts.Authenticator,
					Timeout:       opts.ActionTimeout,
					Logger:        logger,
				})
			},
		}),
		authAPI: authapi.NewHandler(authapi.HandlerOptions{
			Authenticator: apiAuth,
			Authorizer:    apiAuthz,
			Limiter:       limiter,
			Attempts:      opts.RateAttempts,
			Window:        opts.RateWindow,
			Key:           clientKey,
			Logger:        logger,
		}),
	}, nil
}

// beginShutdown tells long-lived responses such as log streams to finish.
func (s *server) beginShutdown() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// close releases what newServer created.
func (s *server) close() {
	s.beginShutdown()
	if s.ownsLimiter {
		s.limiter.Close()
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/blog/", s.handleBlog)
	mux.HandleFunc("/admin", s.handleAdmin)
	mux.HandleFunc("/admin/tab", s.handleAdminTab)
	mux.HandleFunc("/admin/posts", s.handleAdminPosts)
	mux.HandleFunc("/admin/logs", s.handleAdminLogs)
	mux.HandleFunc("/modal/open", s.handleModalOpen)
	mux.HandleFunc("/modal/close", s.handleModalClose)
	mux.HandleFunc("/modal/mode", s.handleModalMode)
	mux.HandleFunc("/modal/submit", s.handleModalSubmit)
	mux.HandleFunc("/auth/state", s.handleAuthState)
	mux.HandleFunc("/auth/logout", s.handleLogout)
	s.authAPI.Register(mux)
	mux.Handle("/styles.css", s.stylesHandler())
	mux.Handle("/Images/", s.imagesHandler())
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return logging.NewHTTPLogger(s.logger, 4096).Middleware(mux)
}
