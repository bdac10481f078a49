package mocks

import (
	"context"

	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
)

// MockPostRepository is a mock implementation of PostRepository. It keeps
// real in-memory semantics and records every write so tests can assert that
// the store was or was not touched.
type MockPostRepository struct {
	store repository.PostRepository

	GetError    error
	CreateError error
	UpdateError error
	DeleteError error

	CreateCalls []models.Post
	UpdateCalls []UpdateCall
	DeleteCalls []string
}

// UpdateCall captures one Update invocation
type UpdateCall struct {
	Slug string
	Post models.Post
}

// Verify interface compliance
var _ repository.PostRepository = (*MockPostRepository)(nil)

func NewMockPostRepository(seed ...models.Post) *MockPostRepository {
	m := &MockPostRepository{store: repository.NewMemoryPostRepo()}
	for i := range seed {
		p := seed[i]
		_, _ = m.store.Create(context.Background(), &p)
	}
	return m
}

// Writes returns the total number of write calls made
func (m *MockPostRepository) Writes() int {
	return len(m.CreateCalls) + len(m.UpdateCalls) + len(m.DeleteCalls)
}

func (m *MockPostRepository) Get(ctx context.Context, slug string) (*models.Post, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.store.Get(ctx, slug)
}

func (m *MockPostRepository) List(ctx context.Context) ([]models.Post, error) {
	return m.store.List(ctx)
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	m.CreateCalls = append(m.CreateCalls, *post)
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return m.store.Create(ctx, post)
}

func (m *MockPostRepository) Update(ctx context.Context, slug string, post *models.Post) (*models.Post, error) {
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{Slug: slug, Post: *post})
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	return m.store.Update(ctx, slug, post)
}

func (m *MockPostRepository) Delete(ctx context.Context, slug string) error {
	m.DeleteCalls = append(m.DeleteCalls, slug)
	if m.DeleteError != nil {
		return m.DeleteError
	}
	return m.store.Delete(ctx, slug)
}

func (m *MockPostRepository) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

func (m *MockPostRepository) StreamAll(ctx context.Context, callback func(*models.Post) error) error {
	return m.store.StreamAll(ctx, callback)
}
