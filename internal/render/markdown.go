// Package render turns post records into presentational output.
//
// Trust boundary: markdown is converted without sanitization, so raw HTML in
// a post reaches the page as-is. Only the authenticated admin may author
// content; do not feed untrusted markdown through this package.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/markdown-blog/internal/models"
)

// View is a post ready for a template. Stored posts and in-flight drafts
// produce the same View, which is what makes previews faithful.
type View struct {
	Title string
	Slug  string
	HTML  template.HTML
}

// Renderer converts a post-shaped value into a View
type Renderer interface {
	Render(post models.Post) (View, error)
}

var _ Renderer = (*MarkdownRenderer)(nil)

// MarkdownRenderer renders markdown through goldmark with GFM enabled
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer builds a reusable renderer. goldmark engines are safe
// for concurrent Convert calls.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render converts post.Markdown to HTML. Title and slug pass through
// untouched and are escaped later by html/template.
func (r *MarkdownRenderer) Render(post models.Post) (View, error) {
	out, err := r.HTML(post.Markdown)
	if err != nil {
		return View{}, err
	}
	return View{Title: post.Title, Slug: post.Slug, HTML: out}, nil
}

// HTML converts raw markdown to trusted HTML
func (r *MarkdownRenderer) HTML(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return template.HTML(buf.String()), nil
}
