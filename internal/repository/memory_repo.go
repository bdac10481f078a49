package repository

import (
	"context"
	"sync"

	"github.com/markdown-blog/internal/models"
)

// memoryPostRepo keeps posts in process memory. Order holds the slugs in
// insertion order; a renamed post keeps its position.
type memoryPostRepo struct {
	mu    sync.RWMutex
	posts map[string]models.Post
	order []string
}

// NewMemoryPostRepo creates an empty in-memory post repository
func NewMemoryPostRepo() PostRepository {
	return &memoryPostRepo{
		posts: make(map[string]models.Post),
	}
}

// Get returns a copy of the post stored under slug
func (r *memoryPostRepo) Get(ctx context.Context, slug string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[slug]
	if !ok {
		return nil, notFound(slug)
	}
	return &post, nil
}

// List returns all posts in insertion order
func (r *memoryPostRepo) List(ctx context.Context) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]models.Post, 0, len(r.order))
	for _, slug := range r.order {
		posts = append(posts, r.posts[slug])
	}
	return posts, nil
}

// Create stores a new post, rejecting duplicate slugs
func (r *memoryPostRepo) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.Slug]; exists {
		return nil, conflict(post.Slug)
	}
	stored := *post
	r.posts[stored.Slug] = stored
	r.order = append(r.order, stored.Slug)
	return &stored, nil
}

// Update replaces the post under slug, moving it when post.Slug differs
func (r *memoryPostRepo) Update(ctx context.Context, slug string, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[slug]; !exists {
		return nil, notFound(slug)
	}
	stored := *post
	if stored.Slug != slug {
		if _, taken := r.posts[stored.Slug]; taken {
			return nil, conflict(stored.Slug)
		}
		delete(r.posts, slug)
		for i, s := range r.order {
			if s == slug {
				r.order[i] = stored.Slug
				break
			}
		}
	}
	r.posts[stored.Slug] = stored
	return &stored, nil
}

// Delete removes the post under slug
func (r *memoryPostRepo) Delete(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[slug]; !exists {
		return notFound(slug)
	}
	delete(r.posts, slug)
	for i, s := range r.order {
		if s == slug {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored posts
func (r *memoryPostRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.posts), nil
}

// StreamAll calls callback for every post in insertion order. It works on a
// snapshot so the callback may call back into the repository.
func (r *memoryPostRepo) StreamAll(ctx context.Context, callback func(*models.Post) error) error {
	posts, err := r.List(ctx)
	if err != nil {
		return err
	}
	for i := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(&posts[i]); err != nil {
			return err
		}
	}
	return nil
}
