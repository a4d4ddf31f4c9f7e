package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/examlens/examlens/internal/api"
	"github.com/examlens/examlens/internal/config"
	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/narrate"
	"github.com/examlens/examlens/internal/nl2sql"
	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/pipeline"
	"github.com/examlens/examlens/internal/query/sqldb"
	"github.com/examlens/examlens/internal/schema"
	"github.com/examlens/examlens/internal/storage"
	s3store "github.com/examlens/examlens/internal/storage/s3"
	"github.com/examlens/examlens/internal/viz"
)

func main() {
	cfg, err := config.LoadFromEnv("examlens-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	var schemaSource storage.ObjectSource
	if cfg.Schema.ObjectKey != "" {
		bucket, err := s3store.Open(startupCtx, s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		schemaSource = bucket
	}
	description, origin, err := schema.Load(startupCtx, cfg.Schema, schemaSource)
	if err != nil {
		logger.Error("failed to load schema description", slog.Any("error", err))
		os.Exit(1)
	}
	driver, err := sqldb.NormalizeDriver(cfg.Database.Driver)
	if err != nil {
		logger.Error("invalid database driver", slog.Any("error", err))
		os.Exit(1)
	}
	switch {
	case cfg.Database.Dialect != "":
		description = description.WithDialect(cfg.Database.Dialect)
	case origin == schema.OriginEmbedded:
		description = description.WithDialect(sqldb.DefaultDialects[driver])
	}
	logger.Info("schema description loaded",
		slog.String("origin", string(origin)),
		slog.String("dialect", description.Dialect()),
		slog.Int("tables", len(description.Tables())),
	)

	db, err := sqldb.Open(startupCtx, cfg.Database)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	engine, err := sqldb.NewEngine(db, cfg.Database.QueryTimeout)
	if err != nil {
		logger.Error("failed to initialize query engine", slog.Any("error", err))
		os.Exit(1)
	}

	var completer llm.Completer = llm.Unconfigured{}
	if strings.TrimSpace(cfg.AI.APIKey) != "" {
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
			Referer: cfg.AI.Referer,
			Title:   cfg.AI.Title,
		})
		if err != nil {
			logger.Error("failed to initialize language model client", slog.Any("error", err))
			os.Exit(1)
		}
		completer = client
	} else {
		logger.Warn("language model api key is not set; chat requests will fail as unavailable")
	}

	runner, err := newPipeline(cfg, logger, completer, description, engine)
	if err != nil {
		logger.Error("failed to initialize chat pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger: logger,
		Readiness: api.CombineReadinessChecks(
			api.PingDatabase(engine),
			api.CheckLanguageModelConfig(cfg),
		),
		DependencyTimeout: 2 * time.Second,
		Chat:              runner,
		Schema:            description,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func newPipeline(cfg config.Config, logger *slog.Logger, completer llm.Completer, description *schema.Description, engine *sqldb.Engine) (*pipeline.Pipeline, error) {
	synthesizer, err := nl2sql.NewSynthesizer(completer, description, nl2sql.Options{
		MaxTokens: cfg.AI.SynthesisMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	planner, err := viz.NewPlanner(completer, viz.Options{
		MaxTokens: cfg.AI.PlannerMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	narrator, err := narrate.NewNarrator(completer, narrate.Options{
		MaxTokens:   cfg.AI.NarratorMaxTokens,
		Temperature: cfg.AI.NarratorTemp,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return pipeline.New(synthesizer, engine, planner, narrator, pipeline.Options{
		Timeout:        cfg.Pipeline.Timeout,
		Concurrent:     cfg.Pipeline.Concurrent,
		RedactDBErrors: cfg.Pipeline.RedactDBErrors,
		PreviewRows:    cfg.Pipeline.PreviewRows,
		Logger:         logger,
	})
}
