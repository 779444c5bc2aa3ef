// Package orchestrator owns the per-document processing state machine. It
// sequences metadata extraction, provider routing, tiered content extraction
// and finalization, persisting and broadcasting every transition. Cancellation
// is cooperative: stop removes the document's claim, and the run observes the
// missing claim at its next stage boundary.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/broadcast"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/content"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/extract"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
	"github.com/kelechi-nwosu/docpipeline/internal/routing"
)

// remediationHint is attached to failures from unexpected errors so the user
// always has a next step.
const remediationHint = "re-upload the document or retry processing; contact support if the failure persists"

type Orchestrator struct {
	logger   *slog.Logger
	docs     repository.DocumentRepository
	rules    repository.RuleRepository
	reader   *content.Reader
	router   *routing.Engine
	adapters *extract.Registry
	bus      *broadcast.Broadcaster
	claims   *ClaimSet

	runTimeout time.Duration
	wg         sync.WaitGroup
}

type Option func(*Orchestrator)

func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.runTimeout = d
		}
	}
}

func New(
	logger *slog.Logger,
	docs repository.DocumentRepository,
	rules repository.RuleRepository,
	reader *content.Reader,
	router *routing.Engine,
	adapters *extract.Registry,
	bus *broadcast.Broadcaster,
	claims *ClaimSet,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if claims == nil {
		claims = NewClaimSet()
	}
	o := &Orchestrator{
		logger:     logger,
		docs:       docs,
		rules:      rules,
		reader:     reader,
		router:     router,
		adapters:   adapters,
		bus:        bus,
		claims:     claims,
		runTimeout: 3 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Claims exposes the claim set for stats reporting.
func (o *Orchestrator) Claims() *ClaimSet { return o.claims }

// Start begins an asynchronous processing run for the document. It returns as
// soon as the run is launched; outcomes are observed through the store and the
// broadcaster. Starting an already-claimed document is a no-op.
func (o *Orchestrator) Start(ctx context.Context, id uuid.UUID) error {
	doc, err := o.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !o.claims.Acquire(id) {
		o.logger.Info("orchestrator.start.already_claimed", "doc_id", id)
		return nil
	}

	if !doc.Status.CanTransition(constants.StatusInProgress) {
		o.claims.Release(id)
		o.logger.Warn("orchestrator.start.illegal_transition",
			"doc_id", id, "status", doc.Status)
		return nil
	}

	now := time.Now().UTC()
	status := constants.StatusInProgress
	progress := 0
	step := "Starting processing"
	stepProgress := ""
	updated, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Status:                 &status,
		Progress:               &progress,
		CurrentStep:            &step,
		StepProgress:           &stepProgress,
		SetError:               true, // clears any stale error
		ProcessingStartedAt:    &now,
		SetProcessingStartedAt: true,
		SetCompletedAt:         true, // clears completed_at from a prior run
	})
	if err != nil {
		o.claims.Release(id)
		return fmt.Errorf("mark in progress: %w", err)
	}
	o.bus.Publish(broadcast.Update{
		DocumentID:  id,
		Status:      &status,
		Progress:    &progress,
		CurrentStep: &step,
	})
	o.logger.Info("orchestrator.run.start", "doc_id", id, "file_name", updated.FileName)

	o.wg.Add(1)
	go o.run(id, updated.FilePath, updated.FileName)
	return nil
}

// Stop requests cancellation. With a run in flight it only removes the claim;
// the run performs the STOPPED transition at its next boundary. Without one it
// acts as an idempotent abandon, writing STOPPED directly to a non-terminal
// document. Stop never errors.
func (o *Orchestrator) Stop(ctx context.Context, id uuid.UUID) {
	if o.claims.Release(id) {
		o.logger.Info("orchestrator.stop.requested", "doc_id", id)
		return
	}

	doc, err := o.docs.GetByID(ctx, id)
	if err != nil {
		o.logger.Warn("orchestrator.stop.unknown_document", "doc_id", id, "err", err)
		return
	}
	if doc.Status.IsTerminal() {
		o.logger.Debug("orchestrator.stop.already_terminal", "doc_id", id, "status", doc.Status)
		return
	}
	if err := o.markStopped(ctx, id); err != nil {
		o.logger.Error("orchestrator.stop.abandon_failed", "doc_id", id, "err", err)
	}
}

// Retry re-enters a FAILED or STOPPED document into processing: error fields
// cleared, progress reset, then a fresh run.
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID) error {
	doc, err := o.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != constants.StatusFailed && doc.Status != constants.StatusStopped {
		return common.InvalidArgumentErrorf("retry requires FAILED or STOPPED status, document is %s", doc.Status)
	}

	status := constants.StatusQueued
	progress := 0
	step := ""
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Status:         &status,
		Progress:       &progress,
		CurrentStep:    &step,
		StepProgress:   &step,
		SetError:       true,
		SetCompletedAt: true,
	}); err != nil {
		return fmt.Errorf("reset for retry: %w", err)
	}
	o.bus.Publish(broadcast.Update{DocumentID: id, Status: &status, Progress: &progress})
	o.logger.Info("orchestrator.retry", "doc_id", id, "previous_status", doc.Status)

	return o.Start(ctx, id)
}

// Shutdown waits for in-flight runs to finish or the context to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() { defer close(done); o.wg.Wait() }()
	select {
	case <-ctx.Done():
		o.logger.Warn("orchestrator shutdown interrupted by context")
	case <-done:
		o.logger.Info("orchestrator drained, shutdown complete")
	}
}

// run executes the stage sequence for one claimed document. The claim is
// always released on exit, and a panic anywhere in the stages becomes a FAILED
// document rather than a crashed process.
func (o *Orchestrator) run(id uuid.UUID, filePath, fileName string) {
	defer o.wg.Done()
	defer o.claims.Release(id)

	ctx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("orchestrator.run.panic", "doc_id", id, "panic", rec)
			o.fail(id, fmt.Errorf("unexpected error: %v", rec), map[string]any{
				"kind": "panic",
				"hint": remediationHint,
			})
		}
	}()

	if err := o.runStages(ctx, id, filePath, fileName); err != nil {
		o.fail(id, err, map[string]any{
			"kind": "stage_error",
			"hint": remediationHint,
		})
	}
}

func (o *Orchestrator) runStages(ctx context.Context, id uuid.UUID, filePath, fileName string) error {
	// Stage 1: metadata extraction.
	if err := o.progress(ctx, id, constants.ProgressMetadataStart, "Extracting metadata", "1/4"); err != nil {
		return err
	}
	meta, err := o.reader.Read(filePath)
	if err != nil {
		return common.NewAppError("SOURCE_UNREADABLE", "source file missing or unreadable", err)
	}
	pageCount := meta.PageCount
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{PageCount: &pageCount}); err != nil {
		return fmt.Errorf("persist page count: %w", err)
	}
	if err := o.progress(ctx, id, constants.ProgressMetadataDone, "Metadata extracted", "1/4"); err != nil {
		return err
	}

	if o.stopRequested(id) {
		return o.markStopped(ctx, id)
	}

	// Stage 2: routing.
	rules, err := o.rules.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load routing rules: %w", err)
	}
	provider := o.router.Route(routing.Characteristics{
		PageCount:          meta.PageCount,
		HasFinancialTables: meta.HasFinancialTables,
		IsScanned:          meta.IsScanned,
	}, rules)
	providerStr := string(provider)
	routedProgress := constants.ProgressRouted
	step := "Provider selected"
	stepProgress := "2/4"
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Progress:       &routedProgress,
		CurrentStep:    &step,
		StepProgress:   &stepProgress,
		LLMProvider:    &providerStr,
		SetLLMProvider: true,
	}); err != nil {
		return fmt.Errorf("persist routing: %w", err)
	}
	o.bus.Publish(broadcast.Update{
		DocumentID:   id,
		Progress:     &routedProgress,
		CurrentStep:  &step,
		StepProgress: &stepProgress,
		LLMProvider:  &providerStr,
	})
	o.logger.Info("orchestrator.routed",
		"doc_id", id,
		"provider", provider,
		"pages", meta.PageCount,
		"financial", meta.HasFinancialTables,
		"scanned", meta.IsScanned,
	)

	if o.stopRequested(id) {
		return o.markStopped(ctx, id)
	}

	// Stage 3: tiered extraction via the selected provider adapter.
	if err := o.progress(ctx, id, constants.ProgressExtractStart, "Extracting content", "3/4"); err != nil {
		return err
	}
	adapter := o.adapters.Resolve(provider)
	if adapter == nil {
		return common.InternalErrorf("no adapter registered for provider %s", provider)
	}
	result := adapter.Extract(ctx, extract.Request{
		Text:         meta.Text,
		FileNameHint: fileName,
		PageCount:    meta.PageCount,
	})
	if !result.Success {
		return common.InternalErrorf("extraction chain exhausted: %s", result.Error)
	}
	extracted := constants.StatusExtracted
	extractDone := constants.ProgressExtractDone
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Status:   &extracted,
		Progress: &extractDone,
	}); err != nil {
		return fmt.Errorf("persist extraction status: %w", err)
	}
	o.bus.Publish(broadcast.Update{DocumentID: id, Status: &extracted, Progress: &extractDone})

	if o.stopRequested(id) {
		return o.markStopped(ctx, id)
	}

	// Stage 4: finalization.
	if err := o.progress(ctx, id, constants.ProgressFinalizing, "Finalizing", "4/4"); err != nil {
		return err
	}
	payload, err := json.Marshal(result.Content)
	if err != nil {
		return fmt.Errorf("encode extracted content: %w", err)
	}
	now := time.Now().UTC()
	completed := constants.StatusCompleted
	done := constants.ProgressDone
	finalStep := "Completed"
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Status:              &completed,
		Progress:            &done,
		CurrentStep:         &finalStep,
		ExtractedContent:    payload,
		SetExtractedContent: true,
		CompletedAt:         &now,
		SetCompletedAt:      true,
	}); err != nil {
		return fmt.Errorf("finalize document: %w", err)
	}
	o.bus.Publish(broadcast.Update{
		DocumentID:  id,
		Status:      &completed,
		Progress:    &done,
		CurrentStep: &finalStep,
	})
	o.logger.Info("orchestrator.run.completed", "doc_id", id, "tier", result.Tier)
	return nil
}

// stopRequested samples the claim at a stage boundary. A missing claim means
// stop was called (or shutdown released it); the run must not proceed.
func (o *Orchestrator) stopRequested(id uuid.UUID) bool {
	return !o.claims.Has(id)
}

// markStopped performs the STOPPED transition. The store converges to
// progress 100, but the broadcast omits progress so subscribers keep the last
// progress value observed before the stop.
func (o *Orchestrator) markStopped(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	stopped := constants.StatusStopped
	done := constants.ProgressDone
	step := "Stopped"
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Status:         &stopped,
		Progress:       &done,
		CurrentStep:    &step,
		CompletedAt:    &now,
		SetCompletedAt: true,
	}); err != nil {
		return fmt.Errorf("mark stopped: %w", err)
	}
	o.bus.Publish(broadcast.Update{DocumentID: id, Status: &stopped, CurrentStep: &step})
	o.logger.Info("orchestrator.run.stopped", "doc_id", id)
	return nil
}

// fail is the top-level failure handler: persists FAILED with diagnostics and
// publishes a final update. Uses a fresh context so a timed-out run can still
// record its failure.
func (o *Orchestrator) fail(id uuid.UUID, cause error, details map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := cause.Error()
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte(`{}`)
	}
	now := time.Now().UTC()
	failed := constants.StatusFailed
	done := constants.ProgressDone
	step := "Failed"
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Status:         &failed,
		Progress:       &done,
		CurrentStep:    &step,
		ErrorMessage:   &msg,
		ErrorDetails:   detailsJSON,
		SetError:       true,
		CompletedAt:    &now,
		SetCompletedAt: true,
	}); err != nil {
		o.logger.Error("orchestrator.fail.persist_failed", "doc_id", id, "err", err)
	}
	o.bus.Publish(broadcast.Update{
		DocumentID: id,
		Status:     &failed,
		Error:      &msg,
	})
	o.logger.Error("orchestrator.run.failed", "doc_id", id, "err", cause)
}

// progress persists and publishes one progress/step update.
func (o *Orchestrator) progress(ctx context.Context, id uuid.UUID, value int, step, stepProgress string) error {
	if _, err := o.docs.Update(ctx, id, entity.DocumentPatch{
		Progress:     &value,
		CurrentStep:  &step,
		StepProgress: &stepProgress,
	}); err != nil {
		return fmt.Errorf("persist progress %d: %w", value, err)
	}
	o.bus.Publish(broadcast.Update{
		DocumentID:   id,
		Progress:     &value,
		CurrentStep:  &step,
		StepProgress: &stepProgress,
	})
	return nil
}
