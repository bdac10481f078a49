package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/validation"
)

// Intent selects what a submission does
type Intent string

const (
	IntentNew    Intent = "new"
	IntentEdit   Intent = "edit"
	IntentDelete Intent = "delete"
)

// NewPostSlug is the editor path segment that denotes creation
const NewPostSlug = "new"

// AdminListPath is where a successful delete lands
const AdminListPath = "/posts/admin"

// MsgSlugTaken is shown on the slug field when a write collides
const MsgSlugTaken = "A post with this slug already exists"

var (
	// ErrUnrecognizedIntent means the client sent an intent the server does
	// not know. It is a contract mismatch, not bad user input.
	ErrUnrecognizedIntent = errors.New("unrecognized intent")
	// ErrSlugRequired is returned for a delete submission without a slug
	ErrSlugRequired = errors.New("slug is required for delete")
)

// AdminPostPath is the canonical admin location of a post
func AdminPostPath(slug string) string {
	return AdminListPath + "/" + url.PathEscape(slug)
}

// PublicPostPath is the public location of a post
func PublicPostPath(slug string) string {
	return "/posts/" + url.PathEscape(slug)
}

// EditorPath is the admin edit form location of a post
func EditorPath(slug string) string {
	return AdminPostPath(slug) + "/edit"
}

// Submission is one form post to the editor endpoint
type Submission struct {
	Intent string
	// CurrentSlug is the slug the editor was opened for; it is the lookup
	// key for edits and may differ from Slug, which renames the post.
	CurrentSlug string
	Title       string
	Slug        string
	Markdown    string
}

// Outcome is the result of a handled submission. Exactly one of RedirectTo
// and Errors is meaningful: a redirect on success, field errors otherwise.
// Draft always holds the submitted values so they can be re-rendered.
type Outcome struct {
	RedirectTo string
	Errors     models.ErrorSet
	Draft      models.Post
}

// Redirected reports whether the submission succeeded
func (o *Outcome) Redirected() bool {
	return o.RedirectTo != ""
}

// postService is the concrete implementation of PostService
type postService struct {
	posts repository.PostRepository
	guard auth.Guard
	delay time.Duration
	log   zerolog.Logger
}

// newPostService creates a new PostService
func newPostService(posts repository.PostRepository, guard auth.Guard, opts Options, log zerolog.Logger) *postService {
	return &postService{
		posts: posts,
		guard: guard,
		delay: opts.SubmitDelay,
		log:   log.With().Str("service", "posts").Logger(),
	}
}

// GetPublic returns a post by slug without an admin check
func (s *postService) GetPublic(ctx context.Context, slug string) (*models.Post, error) {
	return s.posts.Get(ctx, slug)
}

// ListPublic returns all posts without an admin check
func (s *postService) ListPublic(ctx context.Context) ([]models.Post, error) {
	return s.posts.List(ctx)
}

// ListAdmin returns all posts after the admin check
func (s *postService) ListAdmin(ctx context.Context) ([]models.Post, error) {
	if _, err := s.guard.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.posts.List(ctx)
}

// GetAdmin returns a post by slug after the admin check
func (s *postService) GetAdmin(ctx context.Context, slug string) (*models.Post, error) {
	if _, err := s.guard.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, slug)
}

// LoadEditor returns the stored post for the edit form, or nil for a new post
func (s *postService) LoadEditor(ctx context.Context, slug string) (*models.Post, error) {
	if _, err := s.guard.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if slug == NewPostSlug {
		return nil, nil
	}
	return s.posts.Get(ctx, slug)
}

// Preview returns the post a submission would produce. Nothing is stored.
func (s *postService) Preview(ctx context.Context, sub *Submission) (*models.Post, error) {
	if _, err := s.guard.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	post := validation.Fields{Title: sub.Title, Slug: sub.Slug, Markdown: sub.Markdown}.Post()
	return &post, nil
}

// Count returns the number of stored posts
func (s *postService) Count(ctx context.Context) (int, error) {
	return s.posts.Count(ctx)
}

// Submit handles one editor submission: delete skips validation; new and
// edit validate every field and touch the store only when all pass. A
// successful write always redirects to a slug-derived location.
func (s *postService) Submit(ctx context.Context, sub *Submission) (*Outcome, error) {
	admin, err := s.guard.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if s.delay > 0 {
		if err := sleepContext(ctx, s.delay); err != nil {
			return nil, err
		}
	}

	log := s.log.With().Str("intent", sub.Intent).Str("admin", admin.Email).Logger()

	if Intent(sub.Intent) == IntentDelete {
		slug := sub.Slug
		if strings.TrimSpace(slug) == "" {
			return nil, ErrSlugRequired
		}
		if err := s.posts.Delete(ctx, slug); err != nil {
			return nil, err
		}
		log.Info().Str("slug", slug).Msg("Post deleted")
		return &Outcome{RedirectTo: AdminListPath}, nil
	}

	fields := validation.Fields{Title: sub.Title, Slug: sub.Slug, Markdown: sub.Markdown}
	outcome := &Outcome{Draft: fields.Post()}

	if errs := validation.ValidatePost(fields); errs.HasErrors() {
		log.Debug().Interface("errors", errs).Msg("Submission rejected by validation")
		outcome.Errors = errs
		return outcome, nil
	}

	post := fields.Post()
	var saved *models.Post
	switch Intent(sub.Intent) {
	case IntentNew:
		saved, err = s.posts.Create(ctx, &post)
	case IntentEdit:
		current := sub.CurrentSlug
		if current == "" {
			current = post.Slug
		}
		saved, err = s.posts.Update(ctx, current, &post)
	default:
		log.Error().Msg("Unrecognized intent")
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedIntent, sub.Intent)
	}

	if errors.Is(err, repository.ErrPostConflict) {
		outcome.Errors.Set(models.FieldSlug, MsgSlugTaken)
		return outcome, err
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("slug", saved.Slug).Str("from", sub.CurrentSlug).Msg("Post saved")
	outcome.RedirectTo = AdminPostPath(saved.Slug)
	return outcome, nil
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
