package posts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists posts in PostgreSQL. The schema comes from the
// accounts migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Create inserts a post.
func (s *PostgresStore) Create(ctx context.Context, p Post) (Post, error) {
	p, err := prepare(p, time.Now())
	if err != nil {
		return Post{}, err
	}
	const query = `INSERT INTO posts (id, title, subtitle, tags, body, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`
	if _, err := s.pool.Exec(ctx, query, p.ID, p.Title, p.Subtitle, p.Tags, p.Body, p.AuthorID, p.CreatedAt); err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// List returns posts newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Post, error) {
	const query = `SELECT id, title, subtitle, tags, body, COALESCE(author_id, ''), created_at
		FROM posts ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Tags, &p.Body, &p.AuthorID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}
