package validation

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/markdown-blog/internal/models"
)

// Messages surfaced next to the form fields
const (
	MsgTitleRequired    = "Title is required"
	MsgSlugRequired     = "Slug is required"
	MsgMarkdownRequired = "Markdown is required"
)

// Fields holds the values submitted for a post. They are stored exactly as
// given; only the emptiness checks look past surrounding whitespace.
type Fields struct {
	Title    string
	Slug     string
	Markdown string
}

// Post converts the fields into a post record
func (f Fields) Post() models.Post {
	return models.Post{Title: f.Title, Slug: f.Slug, Markdown: f.Markdown}
}

// FieldsFromPost is the inverse of Fields.Post
func FieldsFromPost(p models.Post) Fields {
	return Fields{Title: p.Title, Slug: p.Slug, Markdown: p.Markdown}
}

// ValidatePost checks every field independently for non-emptiness. All three
// rules always run, so a single call reports every missing field.
// Whitespace-only values count as missing.
func ValidatePost(f Fields) models.ErrorSet {
	errs := validation.Errors{
		models.FieldTitle:    validation.Validate(strings.TrimSpace(f.Title), validation.Required.Error(MsgTitleRequired)),
		models.FieldSlug:     validation.Validate(strings.TrimSpace(f.Slug), validation.Required.Error(MsgSlugRequired)),
		models.FieldMarkdown: validation.Validate(strings.TrimSpace(f.Markdown), validation.Required.Error(MsgMarkdownRequired)),
	}

	var set models.ErrorSet
	filtered, ok := errs.Filter().(validation.Errors)
	if !ok {
		return set
	}
	for field, err := range filtered {
		set.Set(field, err.Error())
	}
	return set
}
