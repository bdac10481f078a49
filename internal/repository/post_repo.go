package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/database"
	"github.com/markdown-blog/internal/models"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// postRepo is the database/sql implementation of PostRepository, shared by
// the postgres and sqlite drivers. Queries are written with ? placeholders
// and rebound for postgres.
type postRepo struct {
	db *database.DB
}

// NewPostRepo creates a new SQL-backed post repository
func NewPostRepo(db *database.DB) PostRepository {
	return &postRepo{db: db}
}

// Get retrieves a post by slug
func (r *postRepo) Get(ctx context.Context, slug string) (*models.Post, error) {
	query := r.rebind(`SELECT slug, title, markdown FROM posts WHERE slug = ?`)

	var post models.Post
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&post.Slug, &post.Title, &post.Markdown)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get post %q: %w", slug, err)
	}
	return &post, nil
}

// List retrieves all posts in insertion order
func (r *postRepo) List(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.StreamAll(ctx, func(p *models.Post) error {
		posts = append(posts, *p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Create inserts a new post
func (r *postRepo) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := r.rebind(`INSERT INTO posts (slug, title, markdown) VALUES (?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, post.Slug, post.Title, post.Markdown); err != nil {
		if isUniqueViolation(err) {
			return nil, conflict(post.Slug)
		}
		return nil, fmt.Errorf("create post %q: %w", post.Slug, err)
	}
	stored := *post
	return &stored, nil
}

// Update replaces the post stored under slug inside one transaction
func (r *postRepo) Update(ctx context.Context, slug string, post *models.Post) (*models.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	exists, err := r.slugExists(ctx, tx, slug)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound(slug)
	}

	if post.Slug != slug {
		taken, err := r.slugExists(ctx, tx, post.Slug)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflict(post.Slug)
		}
	}

	query := r.rebind(`
		UPDATE posts SET slug = ?, title = ?, markdown = ?, updated_at = CURRENT_TIMESTAMP
		WHERE slug = ?
	`)
	if _, err := tx.ExecContext(ctx, query, post.Slug, post.Title, post.Markdown, slug); err != nil {
		if isUniqueViolation(err) {
			return nil, conflict(post.Slug)
		}
		return nil, fmt.Errorf("update post %q: %w", slug, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	stored := *post
	return &stored, nil
}

// Delete removes a post by slug
func (r *postRepo) Delete(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM posts WHERE slug = ?`), slug)
	if err != nil {
		return fmt.Errorf("delete post %q: %w", slug, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound(slug)
	}
	return nil
}

// Count returns the total number of posts
func (r *postRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// StreamAll streams all posts in insertion order
func (r *postRepo) StreamAll(ctx context.Context, callback func(*models.Post) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT slug, title, markdown FROM posts ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.Slug, &post.Title, &post.Markdown); err != nil {
			return err
		}
		if err := callback(&post); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (r *postRepo) slugExists(ctx context.Context, tx *sql.Tx, slug string) (bool, error) {
	var exists bool
	query := r.rebind(`SELECT EXISTS(SELECT 1 FROM posts WHERE slug = ?)`)
	if err := tx.QueryRowContext(ctx, query, slug).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// rebind rewrites ? placeholders to $n for postgres
func (r *postRepo) rebind(query string) string {
	if r.db.Driver != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
