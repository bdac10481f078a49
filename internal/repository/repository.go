package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/database"
	"github.com/markdown-blog/internal/models"
)

var (
	// ErrPostNotFound is returned when no post has the requested slug
	ErrPostNotFound = errors.New("post not found")
	// ErrPostConflict is returned when a write would duplicate an existing slug
	ErrPostConflict = errors.New("post slug already exists")
)

func notFound(slug string) error {
	return fmt.Errorf("%w: %q", ErrPostNotFound, slug)
}

func conflict(slug string) error {
	return fmt.Errorf("%w: %q", ErrPostConflict, slug)
}

// PostRepository defines the interface for post persistence, keyed by slug.
//
// Every method is atomic for the single key it touches; there is no
// transaction spanning several calls. Implementations must be safe for
// concurrent use. Two writers racing on the same slug resolve as last write
// wins.
//
//   - Get returns ErrPostNotFound when the slug is absent.
//   - List returns posts in insertion order.
//   - Create returns ErrPostConflict when the slug is taken.
//   - Update looks the post up by slug and replaces it with post. post.Slug
//     may differ from slug, which moves the post; the old slug then resolves
//     to ErrPostNotFound. Moving onto a slug held by another post returns
//     ErrPostConflict. A missing slug returns ErrPostNotFound.
//   - Delete returns ErrPostNotFound when the slug is absent.
type PostRepository interface {
	Get(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, slug string, post *models.Post) (*models.Post, error)
	Delete(ctx context.Context, slug string) error
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Post) error) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Post PostRepository
}

// New creates all repositories for the configured driver. db is ignored, and
// may be nil, for the memory driver.
func New(driver string, db *database.DB) (*Repositories, error) {
	switch driver {
	case config.DriverMemory:
		return &Repositories{Post: NewMemoryPostRepo()}, nil
	case config.DriverSQLite, config.DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("driver %s requires a database connection", driver)
		}
		return &Repositories{Post: NewPostRepo(db)}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
