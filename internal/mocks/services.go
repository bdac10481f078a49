package mocks

import (
	"context"
	"net/http"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/service"
)

// MockGuard is a mock implementation of auth.Guard
type MockGuard struct {
	Admin *auth.Admin
	Err   error
	Calls int
}

// Verify interface compliance
var _ auth.Guard = (*MockGuard)(nil)

// NewAllowGuard returns a guard that admits every caller
func NewAllowGuard() *MockGuard {
	return &MockGuard{Admin: &auth.Admin{Email: "admin@example.com"}}
}

// NewDenyGuard returns a guard that rejects every caller
func NewDenyGuard() *MockGuard {
	return &MockGuard{Err: auth.ErrUnauthorized}
}

func (m *MockGuard) RequireAdmin(ctx context.Context) (*auth.Admin, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Admin, nil
}

// MockPostService is a mock implementation of PostService
type MockPostService struct {
	Posts      []models.Post
	Err        error
	SubmitFunc func(ctx context.Context, sub *service.Submission) (*service.Outcome, error)
	Submitted  []service.Submission
}

// Verify interface compliance
var _ service.PostService = (*MockPostService)(nil)

func NewMockPostService(posts ...models.Post) *MockPostService {
	return &MockPostService{Posts: posts}
}

func (m *MockPostService) find(slug string) (*models.Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Posts {
		if m.Posts[i].Slug == slug {
			p := m.Posts[i]
			return &p, nil
		}
	}
	return nil, repository.ErrPostNotFound
}

func (m *MockPostService) GetPublic(ctx context.Context, slug string) (*models.Post, error) {
	return m.find(slug)
}

func (m *MockPostService) ListPublic(ctx context.Context) ([]models.Post, error) {
	return m.Posts, m.Err
}

func (m *MockPostService) ListAdmin(ctx context.Context) ([]models.Post, error) {
	return m.Posts, m.Err
}

func (m *MockPostService) GetAdmin(ctx context.Context, slug string) (*models.Post, error) {
	return m.find(slug)
}

func (m *MockPostService) LoadEditor(ctx context.Context, slug string) (*models.Post, error) {
	if slug == service.NewPostSlug {
		return nil, m.Err
	}
	return m.find(slug)
}

func (m *MockPostService) Preview(ctx context.Context, sub *service.Submission) (*models.Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Post{Title: sub.Title, Slug: sub.Slug, Markdown: sub.Markdown}, nil
}

func (m *MockPostService) Submit(ctx context.Context, sub *service.Submission) (*service.Outcome, error) {
	m.Submitted = append(m.Submitted, *sub)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sub)
	}
	return &service.Outcome{RedirectTo: service.AdminPostPath(sub.Slug)}, nil
}

func (m *MockPostService) Count(ctx context.Context) (int, error) {
	return len(m.Posts), m.Err
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamFunc func(ctx context.Context, w http.ResponseWriter, format string) error
	Formats    []string
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func (m *MockExportService) StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error {
	m.Formats = append(m.Formats, format)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, format)
	}
	_, err := w.Write([]byte("[]"))
	return err
}
