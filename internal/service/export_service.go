package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
)

// Export formats
const (
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
)

// ErrUnsupportedFormat is returned for an export format other than ndjson or json
var ErrUnsupportedFormat = errors.New("unsupported format")

// flushEvery is how many records are written between flushes
const flushEvery = 100

// exportService is the concrete implementation of ExportService
type exportService struct {
	posts repository.PostRepository
	guard auth.Guard
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(posts repository.PostRepository, guard auth.Guard, log zerolog.Logger) *exportService {
	return &exportService{
		posts: posts,
		guard: guard,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamPosts writes every post to w in the requested format. Nothing is
// written when the caller is not an admin or the format is unknown.
func (s *exportService) StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error {
	if _, err := s.guard.RequireAdmin(ctx); err != nil {
		return err
	}

	s.log.Info().Str("format", format).Msg("Starting posts export")

	switch format {
	case FormatNDJSON:
		return s.streamNDJSON(ctx, w)
	case FormatJSON:
		return s.streamJSON(ctx, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=posts.ndjson")

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	count := 0

	err := s.posts.StreamAll(ctx, func(post *models.Post) error {
		// Encode appends the newline that terminates each record
		if err := enc.Encode(post); err != nil {
			return err
		}
		count++

		if count%flushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Posts export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=posts.json")

	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}
	first := true
	count := 0

	err := s.posts.StreamAll(ctx, func(post *models.Post) error {
		if !first {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		first = false

		data, err := json.Marshal(post)
		if err != nil {
			return err
		}
		count++
		_, err = w.Write(data)
		return err
	})

	if _, werr := w.Write([]byte("]")); err == nil {
		err = werr
	}
	s.log.Info().Int("count", count).Msg("Posts export completed")
	return err
}
