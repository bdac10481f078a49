// Package importer loads markdown files with YAML front matter into the post
// store.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/validation"
)

// ErrInvalidDocument is returned for a document that fails post validation
var ErrInvalidDocument = errors.New("invalid document")

// frontMatter is the metadata block at the top of a markdown file
type frontMatter struct {
	Title string `yaml:"title" toml:"title" json:"title"`
	Slug  string `yaml:"slug" toml:"slug" json:"slug"`
}

// Result summarizes one import run
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// Importer writes parsed documents through the post repository
type Importer struct {
	posts repository.PostRepository
	log   zerolog.Logger
}

// New creates an Importer
func New(posts repository.PostRepository, log zerolog.Logger) *Importer {
	return &Importer{
		posts: posts,
		log:   log.With().Str("component", "importer").Logger(),
	}
}

// ParseDocument splits source into a post. The slug defaults to the file name
// without its extension.
func ParseDocument(name string, source []byte) (models.Post, error) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return models.Post{}, fmt.Errorf("parse front matter in %s: %w", name, err)
	}

	if strings.TrimSpace(meta.Slug) == "" {
		base := path.Base(name)
		meta.Slug = strings.TrimSuffix(base, path.Ext(base))
	}

	fields := validation.Fields{Title: meta.Title, Slug: meta.Slug, Markdown: string(body)}
	if errs := validation.ValidatePost(fields); errs.HasErrors() {
		var msgs []string
		for _, field := range []string{models.FieldTitle, models.FieldSlug, models.FieldMarkdown} {
			if msg := errs.Get(field); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return models.Post{}, fmt.Errorf("%w %s: %s", ErrInvalidDocument, name, strings.Join(msgs, "; "))
	}
	return fields.Post(), nil
}

// ImportDir imports every *.md file under fsys in lexical order. Existing
// slugs are skipped and invalid documents are counted as failed; neither stops
// the run. Store errors do.
func (i *Importer) ImportDir(ctx context.Context, fsys fs.FS) (*Result, error) {
	result := &Result{}

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(name) != ".md" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		return i.importFile(ctx, name, source, result)
	})

	i.log.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Import finished")
	return result, err
}

func (i *Importer) importFile(ctx context.Context, name string, source []byte, result *Result) error {
	post, err := ParseDocument(name, source)
	if err != nil {
		i.log.Warn().Err(err).Str("file", name).Msg("Skipping invalid document")
		result.Failed++
		return nil
	}

	_, err = i.posts.Create(ctx, &post)
	switch {
	case errors.Is(err, repository.ErrPostConflict):
		i.log.Info().Str("file", name).Str("slug", post.Slug).Msg("Slug exists, skipping")
		result.Skipped++
		return nil
	case err != nil:
		return fmt.Errorf("store %s: %w", name, err)
	}

	i.log.Debug().Str("file", name).Str("slug", post.Slug).Msg("Imported post")
	result.Imported++
	return nil
}
