package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
)

// PostService defines the read surfaces and the edit workflow for posts.
// Admin-scoped methods consult the Guard before touching the store.
type PostService interface {
	// GetPublic returns a post for the public read surface
	GetPublic(ctx context.Context, slug string) (*models.Post, error)
	// ListPublic returns all posts in list order
	ListPublic(ctx context.Context) ([]models.Post, error)
	// ListAdmin returns all posts for the admin listing
	ListAdmin(ctx context.Context) ([]models.Post, error)
	// GetAdmin returns a single post for the admin view
	GetAdmin(ctx context.Context, slug string) (*models.Post, error)
	// LoadEditor returns the post to prefill the editor with, or nil when
	// slug is NewPostSlug
	LoadEditor(ctx context.Context, slug string) (*models.Post, error)
	// Preview normalizes a submission for rendering without validating or
	// storing it
	Preview(ctx context.Context, sub *Submission) (*models.Post, error)
	// Submit runs one form submission through validation and the store
	Submit(ctx context.Context, sub *Submission) (*Outcome, error)
	// Count returns the number of stored posts
	Count(ctx context.Context) (int, error)
}

// ExportService defines the interface for admin export operations
type ExportService interface {
	StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error
}

// Options tunes service behavior
type Options struct {
	// SubmitDelay is waited before each submission is parsed
	SubmitDelay time.Duration
}

// Services holds all service interfaces
type Services struct {
	Posts  PostService
	Export ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, guard auth.Guard, opts Options, log zerolog.Logger) *Services {
	return &Services{
		Posts:  newPostService(repos.Post, guard, opts, log),
		Export: newExportService(repos.Post, guard, log),
	}
}
