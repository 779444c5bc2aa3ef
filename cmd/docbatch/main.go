// docbatch processes a directory of documents through the full pipeline
// without the HTTP surface: register, process, wait for a terminal status,
// and print a per-file summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/broadcast"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/content"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/extract"
	"github.com/kelechi-nwosu/docpipeline/internal/ingest"
	"github.com/kelechi-nwosu/docpipeline/internal/orchestrator"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
	"github.com/kelechi-nwosu/docpipeline/internal/routing"
)

const pollInterval = 250 * time.Millisecond

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of documents to process (required)")
		dsn      = flag.String("dsn", "file::memory:?cache=shared", "database DSN; defaults to in-memory SQLite")
		workers  = flag.Int("workers", 4, "concurrent documents")
		timeout  = flag.Duration("timeout", 10*time.Minute, "overall batch timeout")
		logLevel = flag.String("log-level", "warn", "debug|info|warn|error")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := runBatch(ctx, *dir, *dsn, *workers, logger); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, dir, dsn string, workers int, logger *slog.Logger) error {
	cfg, err := common.LoadConfig("")
	if err != nil {
		return err
	}

	db, err := repository.Open(ctx, repository.Config{DSN: dsn, MaxConns: 1}, logger)
	if err != nil {
		return err
	}
	defer repository.Close(db, logger)
	if err := repository.Migrate(ctx, db, logger); err != nil {
		return err
	}

	docs := repository.NewDocumentRepository(db, logger)
	rules := repository.NewRuleRepository(db, logger)
	for _, rule := range routing.DefaultRules() {
		if err := rules.Upsert(ctx, &rule); err != nil {
			return err
		}
	}

	claims := orchestrator.NewClaimSet()
	caster := broadcast.NewBroadcaster(docs, claims, logger)
	orch := orchestrator.New(
		logger, docs, rules,
		content.NewReader(logger),
		routing.NewEngine(logger),
		extract.BuildRegistry(cfg, logger),
		caster, claims,
		orchestrator.WithRunTimeout(cfg.Pipeline.RunTimeout),
	)
	ing := ingest.NewService(docs, logger)

	paths, err := collectFiles(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no processable files under %s", dir)
	}

	results := make([]*entity.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			doc, err := processOne(gctx, ing, orch, docs, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printSummary(results)
	return nil
}

func processOne(
	ctx context.Context,
	ing *ingest.Service,
	orch *orchestrator.Orchestrator,
	docs repository.DocumentRepository,
	path string,
) (*entity.Document, error) {
	doc, err := ing.RegisterPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := orch.Start(ctx, doc.ID); err != nil {
		return nil, err
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		cur, err := docs.GetByID(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if cur.Status.IsTerminal() {
			return cur, nil
		}
	}
}

func collectFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func printSummary(results []*entity.Document) {
	counts := map[constants.DocStatus]int{}
	for _, doc := range results {
		if doc == nil {
			continue
		}
		counts[doc.Status]++
		line := fmt.Sprintf("%-40s %s", doc.FileName, doc.Status)
		if doc.LLMProvider != nil {
			line += " via " + *doc.LLMProvider
		}
		if doc.ErrorMessage != nil {
			line += " (" + *doc.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	var parts []string
	for _, st := range []constants.DocStatus{constants.StatusCompleted, constants.StatusFailed, constants.StatusStopped} {
		if counts[st] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[st], strings.ToLower(string(st))))
		}
	}
	fmt.Printf("\n%d documents: %s\n", len(results), strings.Join(parts, ", "))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
