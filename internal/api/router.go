package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/render"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// Authenticator exchanges admin credentials for a session token
type Authenticator interface {
	Login(email, password string) (string, error)
	TTL() time.Duration
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, sessions Authenticator, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Slugs are literal and may contain "/", which links carry as %2F. Match
	// on the escaped path so such a slug stays one segment.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.SetHTMLTemplate(loadTemplates())

	// Middleware
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(sessionMiddleware())

	// Handlers
	renderer := render.NewMarkdownRenderer()
	postHandler := NewPostHandler(services, renderer, cfg, log)
	adminHandler := NewAdminHandler(services, renderer, log)
	authHandler := NewAuthHandler(sessions, cfg, log)

	// Health check
	router.GET("/health", healthCheck(services))

	router.GET("/login", authHandler.LoginForm)
	router.POST("/login", authHandler.Login)
	router.POST("/logout", authHandler.Logout)

	posts := router.Group("/posts")
	{
		posts.GET("/feed.xml", postHandler.Feed)
		posts.GET("/:slug", postHandler.Show)

		admin := posts.Group("/admin")
		{
			admin.GET("", adminHandler.List)
			admin.GET("/export", adminHandler.Export)
			admin.GET("/:slug", adminHandler.Show)
			admin.GET("/:slug/edit", adminHandler.Editor)
			admin.POST("/:slug/edit", adminHandler.Submit)
			admin.POST("/:slug/preview", adminHandler.Preview)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		respondError(c, log, repository.ErrPostNotFound)
	})

	return router
}

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"adminPath":   service.AdminPostPath,
		"publicPath":  service.PublicPostPath,
		"editPath":    service.EditorPath,
		"previewPath": previewPath,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

func previewPath(slug string) string {
	return service.AdminPostPath(slug) + "/preview"
}

// healthCheck returns the health status and the number of stored posts
func healthCheck(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := services.Posts.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now().Format(time.RFC3339),
				"service":   "markdown-blog",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"posts":     count,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "markdown-blog",
		})
	}
}

// wantsJSON reports whether the caller negotiated a JSON response
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

// respondError maps a service or store error to a response
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Redirect(http.StatusSeeOther, "/login?redirectTo="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
		return
	case errors.Is(err, repository.ErrPostNotFound):
		status, message = http.StatusNotFound, "Post not found"
	case errors.Is(err, service.ErrSlugRequired), errors.Is(err, service.ErrUnsupportedFormat):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "Request cancelled"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString(RequestIDHeader)).Msg("Request failed")
	}

	if wantsJSON(c) {
		c.AbortWithStatusJSON(status, gin.H{"error": message})
		return
	}
	page := "error.html"
	if status == http.StatusNotFound {
		page = "not_found.html"
	}
	c.HTML(status, page, gin.H{"PageTitle": http.StatusText(status), "Message": message})
	c.Abort()
}

// requestIDMiddleware tags each request with an id, reusing the caller's
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// sessionMiddleware moves the admin session cookie into the request context
// where the Guard looks for it
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(auth.SessionCookie); err == nil && token != "" {
			c.Request = c.Request.WithContext(auth.WithToken(c.Request.Context(), token))
		}
		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("request_id", c.GetString(RequestIDHeader)).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(RequestIDHeader)).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
