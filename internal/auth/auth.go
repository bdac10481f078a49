package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdown-blog/internal/config"
)

// SessionCookie is the name of the cookie carrying the admin session token
const SessionCookie = "admin_session"

var (
	// ErrUnauthorized is returned when a request carries no valid admin session
	ErrUnauthorized = errors.New("admin authentication required")
	// ErrInvalidCredentials is returned when a login attempt does not match
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Admin is the authenticated admin identity
type Admin struct {
	Email string
}

// Guard gates admin-only operations. RequireAdmin inspects the session token
// carried by ctx (see WithToken) and returns the admin or ErrUnauthorized.
type Guard interface {
	RequireAdmin(ctx context.Context) (*Admin, error)
}

type tokenKey struct{}

// WithToken stores a raw session token in ctx for a later Guard check
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the raw session token stored by WithToken
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Claims is the payload of an admin session token
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTGuard issues and verifies HS256-signed session tokens for the single
// configured admin.
type JWTGuard struct {
	email        string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewJWTGuard builds a guard from config. A plain ADMIN_PASSWORD is hashed
// once at startup so comparisons always go through bcrypt.
func NewJWTGuard(cfg config.AuthConfig) (*JWTGuard, error) {
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = generated
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &JWTGuard{
		email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		passwordHash: hash,
		secret:       []byte(cfg.SessionSecret),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens
func (g *JWTGuard) TTL() time.Duration {
	return g.ttl
}

// Login checks the credentials and returns a signed session token
func (g *JWTGuard) Login(email, password string) (string, error) {
	if strings.ToLower(strings.TrimSpace(email)) != g.email {
		// Spend the same bcrypt time on unknown emails
		_ = bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return g.issue()
}

func (g *JWTGuard) issue() (string, error) {
	now := g.now()
	claims := &Claims{
		Email: g.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// RequireAdmin validates the token carried by ctx
func (g *JWTGuard) RequireAdmin(ctx context.Context) (*Admin, error) {
	raw := TokenFromContext(ctx)
	if raw == "" {
		return nil, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Email != g.email {
		return nil, ErrUnauthorized
	}
	return &Admin{Email: claims.Email}, nil
}
