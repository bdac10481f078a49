// Command seed imports a directory of markdown files into the post store.
//
//	seed -dir ./content
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/markdown-blog/internal/config"
	"github.com/markdown-blog/internal/database"
	"github.com/markdown-blog/internal/importer"
	"github.com/markdown-blog/internal/repository"
	"github.com/markdown-blog/pkg/logger"
)

func main() {
	dir := flag.String("dir", "./content", "directory of markdown files with front matter")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := seed(ctx, &cfg.Database, os.DirFS(*dir), log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("Import failed")
	}
	log.Info().
		Str("dir", *dir).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Seed complete")
}

// seed migrates the configured store and imports every document in content
func seed(ctx context.Context, cfg *config.DatabaseConfig, content fs.FS, log zerolog.Logger) (*importer.Result, error) {
	if cfg.Driver == config.DriverMemory {
		return nil, fmt.Errorf("seeding the in-memory store has no effect; set DB_DRIVER to sqlite or postgres")
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return nil, err
	}

	repos, err := repository.New(cfg.Driver, db)
	if err != nil {
		return nil, err
	}

	return importer.New(repos.Post, log).ImportDir(ctx, content)
}
