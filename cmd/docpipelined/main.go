package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelechi-nwosu/docpipeline/internal/broadcast"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/content"
	"github.com/kelechi-nwosu/docpipeline/internal/export"
	"github.com/kelechi-nwosu/docpipeline/internal/extract"
	"github.com/kelechi-nwosu/docpipeline/internal/ingest"
	"github.com/kelechi-nwosu/docpipeline/internal/orchestrator"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
	"github.com/kelechi-nwosu/docpipeline/internal/routing"
	"github.com/kelechi-nwosu/docpipeline/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevelFromEnv(),
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("daemon.fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer repository.Close(db, logger)

	if err := repository.Migrate(ctx, db, logger); err != nil {
		return err
	}

	docs := repository.NewDocumentRepository(db, logger)
	rules := repository.NewRuleRepository(db, logger)
	if err := seedRules(ctx, rules); err != nil {
		return err
	}

	claims := orchestrator.NewClaimSet()
	caster := broadcast.NewBroadcaster(docs, claims, logger)
	reader := content.NewReader(logger)
	router := routing.NewEngine(logger)
	registry := extract.BuildRegistry(cfg, logger)

	orch := orchestrator.New(
		logger, docs, rules, reader, router, registry, caster, claims,
		orchestrator.WithRunTimeout(cfg.Pipeline.RunTimeout),
	)

	ing := ingest.NewService(docs, logger)
	exporter := export.NewService(docs, logger)
	srv := server.New(cfg.Server, db, ing, orch, caster, exporter, rules, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("daemon.shutdown.begin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("daemon.shutdown.http", "error", err)
	}
	orch.Shutdown(shutdownCtx)
	logger.Info("daemon.shutdown.done")
	return nil
}

// seedRules restores the built-in routing rules on boot. The built-ins carry
// stable ids, so the upsert is idempotent and never touches custom rules.
func seedRules(ctx context.Context, rules repository.RuleRepository) error {
	for _, rule := range routing.DefaultRules() {
		if err := rules.Upsert(ctx, &rule); err != nil {
			return err
		}
	}
	return nil
}

func logLevelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
