package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/Its-donkey/quill/internal/accounts"
	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/authapi"
	"github.com/Its-donkey/quill/internal/config"
	"github.com/Its-donkey/quill/internal/posts"
	"github.com/Its-donkey/quill/internal/ratelimit"
	uiserver "github.com/Its-donkey/quill/internal/ui/server"
	"github.com/Its-donkey/quill/logging"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		// A second signal forces exit.
		<-sigCh
		log.Println("second interrupt received, forcing shutdown")
		os.Exit(1)
	}()
	defer func() {
		signal.Stop(sigCh)
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("quill-server: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("quill-server", pflag.ContinueOnError)
	configPath := flagSet.String("config", "config.json", "path to server configuration (.json, .yaml or .yml)")
	listen := flagSet.String("listen", "", "address to serve the UI (defaults to config server.addr+port)")
	templatesDir := flagSet.String("templates", "", "directory of html/template overrides (defaults to the built-in templates)")
	assetsDir := flagSet.String("assets", "", "directory holding styles.css and Images/ (defaults to config app.assets)")
	logDir := flagSet.String("logs", "", "directory for rotated JSON logs (defaults to config app.logs)")
	migrate := flagSet.Bool("migrate", false, "apply database migrations before serving")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *listen == "" {
		*listen = cfg.Server.Listen()
	}
	if *templatesDir == "" {
		*templatesDir = cfg.App.Templates
	}
	if *assetsDir == "" {
		*assetsDir = cfg.App.Assets
	}
	if *logDir == "" {
		*logDir = cfg.App.Logs
	}

	fileWriter, err := logging.NewFileWriter(*logDir, "app.log", 10, 5)
	if err != nil {
		return fmt.Errorf("prepare log file: %w", err)
	}
	defer fileWriter.Close()
	logger := logging.New(cfg.App.Name, logging.ParseLevel(cfg.App.LogLevel), os.Stdout, fileWriter)

	if cfg.UsingDevSecret() {
		logger.Warn("server", "using the development JWT secret; set auth.jwt_secret or QUILL_JWT_SECRET", nil)
	}

	repo, postStore, closeDB, err := openStores(ctx, cfg, *migrate, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	svc, err := accounts.NewService(accounts.Options{
		Repository: repo,
		Secret:     cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("accounts service: %w", err)
	}

	var (
		authenticator auth.Authenticator = svc
		authorizer    auth.Authorizer    = svc
	)
	if cfg.Auth.APIURL != "" {
		client := authapi.NewClient(cfg.Auth.APIURL, nil)
		authenticator, authorizer = client, client
		logger.Info("auth", "using remote auth API", map[string]any{"url": cfg.Auth.APIURL})
	}

	proxies, err := ratelimit.ParsePrefixes(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return fmt.Errorf("rate_limit.trusted_proxies: %w", err)
	}

	limiter := openLimiter(cfg, logger)
	defer limiter.Close()

	return uiserver.Run(ctx, uiserver.Options{
		Listen:           *listen,
		TemplatesDir:     *templatesDir,
		AssetsDir:        *assetsDir,
		LogPath:          fileWriter.Path(),
		SiteName:         cfg.App.Name,
		Logger:           logger,
		Authenticator:    authenticator,
		APIAuthenticator: svc,
		Authorizer:       authorizer,
		APIAuthorizer:    svc,
		Posts:            postStore,
		Limiter:          limiter,
		RateAttempts:     cfg.RateLimit.Attempts,
		RateWindow:       cfg.RateLimit.Window(),
		ClientKey:        ratelimit.KeyTrustedProxy(proxies),
		SessionTTL:       cfg.Session.TTL(),
	})
}

// openStores returns Postgres-backed stores when a DSN is configured and
// in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Config, migrate bool, logger *logging.Logger) (accounts.Repository, posts.Store, func(), error) {
	if cfg.Database.DSN == "" {
		logger.Info("server", "no database configured; accounts and posts are kept in memory", nil)
		return accounts.NewMemoryRepository(), posts.NewMemoryStore(), func() {}, nil
	}
	if migrate {
		if err := accounts.Migrate(ctx, cfg.Database.DSN, logger); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return accounts.NewPostgresRepository(pool), posts.NewPostgresStore(pool), pool.Close, nil
}

func openLimiter(cfg config.Config, logger *logging.Logger) ratelimit.Limiter {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemory()
	}
	limiter, err := ratelimit.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("server", "redis unavailable; falling back to in-memory rate limiting", map[string]any{"error": err.Error()})
		return ratelimit.NewMemory()
	}
	return limiter
}
