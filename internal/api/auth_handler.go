package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/service"
)

// AuthHandler handles admin login and logout
type AuthHandler struct {
	sessions Authenticator
	secure   bool
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions Authenticator, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		secure:   cfg.Auth.CookieSecure,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

type loginForm struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RedirectTo string `form:"redirectTo" json:"redirectTo"`
}

// LoginForm handles GET /login
func (h *AuthHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"PageTitle":  "Log in",
		"RedirectTo": safeRedirect(c.Query("redirectTo")),
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login request", "details": err.Error()})
		return
	}
	target := safeRedirect(form.RedirectTo)

	token, err := h.sessions.Login(form.Email, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.log.Warn().Str("email", form.Email).Msg("Rejected admin login")
		if wantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"PageTitle":  "Log in",
			"Error":      "Invalid email or password",
			"Email":      form.Email,
			"RedirectTo": target,
		})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(h.sessions.TTL().Seconds()), "/", "", h.secure, true)
	h.log.Info().Str("email", form.Email).Msg("Admin logged in")
	c.Redirect(http.StatusSeeOther, target)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", h.secure, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

// safeRedirect keeps post-login redirects on this site
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return service.AdminListPath
	}
	return target
}
