package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/examlens/examlens/internal/config"
	"github.com/examlens/examlens/internal/demo/seed"
	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/query/sqldb"
	s3store "github.com/examlens/examlens/internal/storage/s3"
)

func main() {
	seedCfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo seed config", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("examlens-demo-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, seedCfg, logger); err != nil {
		logger.Error("demo seed failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, seedCfg seed.Config, logger *slog.Logger) error {
	db, err := sqldb.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: seedCfg.DatabasePath, MaxOpenConns: 1})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tables := seed.NewGenerator(seedCfg.Seed, seedCfg.Students).Tables()
	if err := seed.Load(ctx, db, tables); err != nil {
		return err
	}
	logger.Info("demo database written",
		slog.String("path", seedCfg.DatabasePath),
		slog.Int("tables", len(tables)),
		slog.Int("students", seedCfg.Students),
		slog.Int64("seed", seedCfg.Seed),
	)

	description, err := seed.Describe(tables)
	if err != nil {
		return err
	}
	if seedCfg.SchemaFile != "" {
		body, err := description.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(seedCfg.SchemaFile, body, 0o644); err != nil {
			return err
		}
		logger.Info("schema description written", slog.String("path", seedCfg.SchemaFile))
	}
	if seedCfg.SchemaObjectKey != "" {
		storeCfg := s3store.ConfigFrom(cfg.ObjectStore)
		storeCfg.CreateBucket = true
		bucket, err := s3store.Open(ctx, storeCfg)
		if err != nil {
			return err
		}
		if _, err := seed.Publish(ctx, bucket, seedCfg.SchemaObjectKey, description, logger); err != nil {
			return err
		}
	}
	return nil
}
