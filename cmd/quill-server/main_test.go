package main

import (
	"context"
	"testing"

	"github.com/Its-donkey/quill/internal/accounts"
	"github.com/Its-donkey/quill/internal/config"
	"github.com/Its-donkey/quill/internal/posts"
	"github.com/Its-donkey/quill/internal/ratelimit"
	"github.com/Its-donkey/quill/logging"
)

func TestOpenStoresWithoutDSNUsesMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Database.DSN = ""

	repo, store, closeFn, err := openStores(context.Background(), cfg, true, logging.Nop())
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	defer closeFn()
	if _, ok := repo.(*accounts.MemoryRepository); !ok {
		t.Fatalf("expected memory repository, got %T", repo)
	}
	if _, ok := store.(*posts.MemoryStore); !ok {
		t.Fatalf("expected memory post store, got %T", store)
	}
}

func TestOpenLimiter(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		isMem bool
	}{
		{name: "no redis", addr: "", isMem: true},
		{name: "unreachable redis falls back", addr: "127.0.0.1:1", isMem: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Redis.Addr = tt.addr
			limiter := openLimiter(cfg, logging.Nop())
			defer limiter.Close()
			if _, ok := limiter.(*ratelimit.Memory); ok != tt.isMem {
				t.Fatalf("openLimiter(%q) = %T", tt.addr, limiter)
			}
		})
	}
}

func TestRunHelpExits(t *testing.T) {
	if err := run(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("--help should not fail: %v", err)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--no-such-flag"}); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}
