package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/models"
	"github.com/markdown-blog/internal/render"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/service"
)

// AdminHandler serves the admin listing, editor and export endpoints
type AdminHandler struct {
	services *service.Services
	renderer render.Renderer
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(services *service.Services, renderer render.Renderer, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		renderer: renderer,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// submissionForm is the editor payload, accepted as a form or as JSON
type submissionForm struct {
	Intent   string `form:"intent" json:"intent"`
	Title    string `form:"title" json:"title"`
	Slug     string `form:"slug" json:"slug"`
	Markdown string `form:"markdown" json:"markdown"`
}

// editorPage is the data behind edit.html
type editorPage struct {
	PageTitle   string
	CurrentSlug string
	IsNew       bool
	Draft       models.Post
	Errors      models.ErrorSet
	Preview     *render.View
}

// List handles GET /posts/admin
func (h *AdminHandler) List(c *gin.Context) {
	posts, err := h.services.Posts.ListAdmin(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, posts)
		return
	}
	c.HTML(http.StatusOK, "admin.html", gin.H{"PageTitle": "Admin", "Posts": posts})
}

// Show handles GET /posts/admin/:slug
func (h *AdminHandler) Show(c *gin.Context) {
	slug := c.Param("slug")
	if slug == service.NewPostSlug {
		c.Redirect(http.StatusSeeOther, service.EditorPath(service.NewPostSlug))
		return
	}

	ctx := c.Request.Context()
	post, err := h.services.Posts.GetAdmin(ctx, slug)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	view, err := h.renderer.Render(*post)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"title":    post.Title,
			"slug":     post.Slug,
			"markdown": post.Markdown,
			"html":     string(view.HTML),
		})
		return
	}

	posts, err := h.services.Posts.ListAdmin(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.HTML(http.StatusOK, "admin.html", gin.H{"PageTitle": post.Title, "Posts": posts, "Post": view})
}

// Editor handles GET /posts/admin/:slug/edit. The slug "new" opens an empty
// form.
func (h *AdminHandler) Editor(c *gin.Context) {
	slug := c.Param("slug")
	post, err := h.services.Posts.LoadEditor(c.Request.Context(), slug)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	page := newEditorPage(slug)
	if post != nil {
		page.Draft = *post
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, page.Draft)
		return
	}
	c.HTML(http.StatusOK, "edit.html", page)
}

// Submit handles POST /posts/admin/:slug/edit
func (h *AdminHandler) Submit(c *gin.Context) {
	var form submissionForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission", "details": err.Error()})
		return
	}

	slug := c.Param("slug")
	sub := &service.Submission{
		Intent:   form.Intent,
		Title:    form.Title,
		Slug:     form.Slug,
		Markdown: form.Markdown,
	}
	if slug != service.NewPostSlug {
		sub.CurrentSlug = slug
	}

	out, err := h.services.Posts.Submit(c.Request.Context(), sub)
	switch {
	case errors.Is(err, repository.ErrPostConflict) && out != nil:
		h.renderRejected(c, http.StatusConflict, slug, out)
	case err != nil:
		respondError(c, h.log, err)
	case out.Errors.HasErrors():
		h.renderRejected(c, http.StatusUnprocessableEntity, slug, out)
	default:
		c.Redirect(http.StatusSeeOther, out.RedirectTo)
	}
}

// Preview handles POST /posts/admin/:slug/preview. The submitted values are
// rendered the same way a stored post would be.
func (h *AdminHandler) Preview(c *gin.Context) {
	var form submissionForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission", "details": err.Error()})
		return
	}

	draft, err := h.services.Posts.Preview(c.Request.Context(), &service.Submission{
		Title:    form.Title,
		Slug:     form.Slug,
		Markdown: form.Markdown,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	view, err := h.renderer.Render(*draft)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"title": view.Title, "slug": view.Slug, "html": string(view.HTML)})
		return
	}

	page := newEditorPage(c.Param("slug"))
	page.Draft = *draft
	page.Preview = &view
	c.HTML(http.StatusOK, "edit.html", page)
}

// Export handles GET /posts/admin/export?format=ndjson|json
func (h *AdminHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatNDJSON)

	err := h.services.Export.StreamPosts(c.Request.Context(), c.Writer, format)
	if err == nil {
		return
	}
	if c.Writer.Written() {
		// Can't return an error body after streaming has started
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
		return
	}
	respondError(c, h.log, err)
}

// renderRejected answers a submission that did not reach the store, echoing
// the submitted values with their field errors
func (h *AdminHandler) renderRejected(c *gin.Context, status int, slug string, out *service.Outcome) {
	if wantsJSON(c) {
		c.JSON(status, out.Errors)
		return
	}

	page := newEditorPage(slug)
	page.Draft = out.Draft
	page.Errors = out.Errors
	if view, err := h.renderer.Render(out.Draft); err == nil {
		page.Preview = &view
	}
	c.HTML(status, "edit.html", page)
}

func newEditorPage(slug string) editorPage {
	page := editorPage{CurrentSlug: slug, IsNew: slug == service.NewPostSlug}
	if page.IsNew {
		page.PageTitle = "New post"
	} else {
		page.PageTitle = "Edit " + slug
	}
	return page
}
