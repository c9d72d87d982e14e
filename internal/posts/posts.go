// Package posts stores blog post drafts created from the admin panel.
package posts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPost is returned when a post is missing required fields.
var ErrInvalidPost = errors.New("posts: title and body are required")

// Post is a stored blog post.
type Post struct {
	ID        string
	Title     string
	Subtitle  string
	Tags      []string
	Body      string
	AuthorID  string
	CreatedAt time.Time
}

// Store persists posts.
type Store interface {
	Create(ctx context.Context, p Post) (Post, error)
	List(ctx context.Context) ([]Post, error)
}

// prepare validates p and fills the generated fields.
func prepare(p Post, now time.Time) (Post, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Subtitle = strings.TrimSpace(p.Subtitle)
	p.Body = strings.TrimSpace(p.Body)
	if p.Title == "" || p.Body == "" {
		return Post{}, ErrInvalidPost
	}
	p.Tags = NormalizeTags(p.Tags)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now.UTC()
	}
	return p, nil
}

// NormalizeTags trims tags, drops empties and removes case-insensitive duplicates.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// MemoryStore keeps posts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]Post
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]Post), now: time.Now}
}

// Create validates and stores p.
func (s *MemoryStore) Create(_ context.Context, p Post) (Post, error) {
	p, err := prepare(p, s.now())
	if err != nil {
		return Post{}, err
	}
	s.mu.Lock()
	s.posts[p.ID] = p
	s.mu.Unlock()
	return p, nil
}

// List returns posts newest first.
func (s *MemoryStore) List(_ context.Context) ([]Post, error) {
	s.mu.RLock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
