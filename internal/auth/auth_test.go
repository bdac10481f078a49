package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/markdown-blog/internal/config"
)

func newTestGuard(t *testing.T) *JWTGuard {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	g, err := NewJWTGuard(config.AuthConfig{
		AdminEmail:        "Admin@Example.com",
		AdminPasswordHash: string(hash),
		SessionSecret:     "test-secret",
		SessionTTL:        time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTGuard failed: %v", err)
	}
	return g
}

func TestJWTGuard_LoginAndRequireAdmin(t *testing.T) {
	g := newTestGuard(t)

	token, err := g.Login(" admin@example.com ", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	admin, err := g.RequireAdmin(WithToken(context.Background(), token))
	if err != nil {
		t.Fatalf("RequireAdmin failed: %v", err)
	}
	if admin.Email != "admin@example.com" {
		t.Errorf("Unexpected admin %+v", admin)
	}
}

func TestJWTGuard_LoginRejectsBadCredentials(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "admin@example.com", password: "nope"},
		{name: "unknown email", email: "intruder@example.com", password: "secret"},
		{name: "empty", email: "", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Login(tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestJWTGuard_RequireAdminRejectsBadTokens(t *testing.T) {
	g := newTestGuard(t)
	valid, err := g.Login("admin@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	other := newTestGuard(t)
	other.secret = []byte("another-secret")
	foreign, err := other.Login("admin@example.com", "secret")
	if err != nil {
		t.Fatalf("Login on other guard failed: %v", err)
	}

	tests := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"tampered":     valid + "x",
		"wrong secret": foreign,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if token != "" {
				ctx = WithToken(ctx, token)
			}
			if _, err := g.RequireAdmin(ctx); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestJWTGuard_ExpiredToken(t *testing.T) {
	g := newTestGuard(t)
	issuedAt := time.Now().Add(-2 * time.Hour)
	g.now = func() time.Time { return issuedAt }

	token, err := g.Login("admin@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	g.now = time.Now
	if _, err := g.RequireAdmin(WithToken(context.Background(), token)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected expired token to be rejected, got %v", err)
	}
}

func TestNewJWTGuard_HashesPlainPassword(t *testing.T) {
	g, err := NewJWTGuard(config.AuthConfig{
		AdminEmail:    "admin@example.com",
		AdminPassword: "plain",
		SessionSecret: "s",
	})
	if err != nil {
		t.Fatalf("NewJWTGuard failed: %v", err)
	}
	if string(g.passwordHash) == "plain" {
		t.Error("Password should be stored as a bcrypt hash")
	}
	if g.TTL() != 24*time.Hour {
		t.Errorf("Expected default TTL of 24h, got %s", g.TTL())
	}
	if _, err := g.Login("admin@example.com", "plain"); err != nil {
		t.Errorf("Login with plain password failed: %v", err)
	}
}

func TestNewJWTGuard_RejectsInvalidHash(t *testing.T) {
	_, err := NewJWTGuard(config.AuthConfig{
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: "not-bcrypt",
		SessionSecret:     "s",
	})
	if err == nil {
		t.Error("Expected an error for a malformed hash")
	}
}
