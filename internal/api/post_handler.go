package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/render"
	"github.com/markdown-blog/internal/service"
)

// PostHandler serves the public read surface
type PostHandler struct {
	services *service.Services
	renderer render.Renderer
	feed     render.FeedInfo
	log      zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(services *service.Services, renderer render.Renderer, cfg *config.Config, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		services: services,
		renderer: renderer,
		feed: render.FeedInfo{
			Title:       cfg.Server.SiteTitle,
			Description: "Latest posts",
			SiteURL:     cfg.Server.SiteURL,
		},
		log: log.With().Str("handler", "posts").Logger(),
	}
}

// Show handles GET /posts/:slug
func (h *PostHandler) Show(c *gin.Context) {
	post, err := h.services.Posts.GetPublic(c.Request.Context(), c.Param("slug"))
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
		c.JSON(http.StatusOK, gin.H{"title": view.Title, "slug": view.Slug, "html": string(view.HTML)})
		return
	}
	c.HTML(http.StatusOK, "post.html", gin.H{"PageTitle": view.Title, "Post": view})
}

// Feed handles GET /posts/feed.xml
func (h *PostHandler) Feed(c *gin.Context) {
	posts, err := h.services.Posts.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	info := h.feed
	info.Updated = time.Now()
	if info.SiteURL == "" {
		info.SiteURL = "http://" + c.Request.Host
	}

	var buf bytes.Buffer
	if err := render.WriteRSS(&buf, h.renderer, info, posts); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", buf.Bytes())
}
