package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryStoreCreateValidates(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), Post{Title: "  ", Body: "x"}); !errors.Is(err, ErrInvalidPost) {
		t.Fatalf("expected ErrInvalidPost, got %v", err)
	}
	if _, err := store.Create(context.Background(), Post{Title: "t"}); !errors.Is(err, ErrInvalidPost) {
		t.Fatalf("expected ErrInvalidPost for empty body, got %v", err)
	}
}

func TestMemoryStoreCreateAndList(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := store.Create(context.Background(), Post{Title: " Webpack ", Body: "body", Tags: []string{"Frontend", " frontend ", "", "Tech"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" || first.Title != "Webpack" {
		t.Fatalf("unexpected post %+v", first)
	}
	if diff := cmp.Diff([]string{"Frontend", "Tech"}, first.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	second, err := store.Create(context.Background(), Post{Title: "Vite", Body: "body"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}
