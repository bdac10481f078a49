package models

// Post represents a markdown-backed blog post. Slug is the primary key and
// the public URL segment; it is compared literally, without normalization.
type Post struct {
	Title    string `json:"title" db:"title"`
	Slug     string `json:"slug" db:"slug"`
	Markdown string `json:"markdown" db:"markdown"`
}

// Field names shared by forms, validation and error sets
const (
	FieldTitle    = "title"
	FieldSlug     = "slug"
	FieldMarkdown = "markdown"
)

// ErrorSet holds one optional message per editable field. A nil field means
// the value passed validation; it marshals as JSON null.
type ErrorSet struct {
	Title    *string `json:"title"`
	Slug     *string `json:"slug"`
	Markdown *string `json:"markdown"`
}

// HasErrors reports whether at least one field carries a message
func (e ErrorSet) HasErrors() bool {
	return e.Title != nil || e.Slug != nil || e.Markdown != nil
}

// Set records msg against the named field. Unknown fields are ignored.
func (e *ErrorSet) Set(field, msg string) {
	m := msg
	switch field {
	case FieldTitle:
		e.Title = &m
	case FieldSlug:
		e.Slug = &m
	case FieldMarkdown:
		e.Markdown = &m
	}
}

// Get returns the message for the named field, or "" when it has none.
func (e ErrorSet) Get(field string) string {
	var p *string
	switch field {
	case FieldTitle:
		p = e.Title
	case FieldSlug:
		p = e.Slug
	case FieldMarkdown:
		p = e.Markdown
	}
	if p == nil {
		return ""
	}
	return *p
}
