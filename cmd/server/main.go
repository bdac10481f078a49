package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/api"
	"github.com/markdown-blog/internal/auth"
	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/database"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/internal/service"
	"github.com/markdown-blog/pkg/logger"
)

func main() {
	// A missing .env is fine; real environment variables win either way
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("driver", cfg.Database.Driver).Msg("Starting markdown blog server...")

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	srv := newServer(cfg, a.handler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}

// app holds the wired HTTP handler and the resources behind it
type app struct {
	db      *database.DB
	handler http.Handler
}

// newApp wires the store, guard, services and router for cfg
func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{}

	// Initialize database
	if cfg.Database.Driver != config.DriverMemory {
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		a.db = db

		if err := db.RunMigrations(); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		log.Warn().Msg("Using the in-memory store; posts are lost on restart")
	}

	// Initialize repositories
	repos, err := repository.New(cfg.Database.Driver, a.db)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Admin access guard
	guard, err := auth.NewJWTGuard(cfg.Auth)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Initialize services
	services := service.NewServices(repos, guard, service.Options{SubmitDelay: cfg.Editor.SubmitDelay}, log)

	// Initialize router
	a.handler = api.NewRouter(services, guard, cfg, log)
	return a, nil
}

// Close releases the database connection, if any
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// newServer creates the HTTP server
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}
}
