package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/llm"
)

// RemoteTier calls the provider's completion endpoint. Every vendor-side
// failure class (missing credential, auth, rate, server, malformed response)
// yields (nil, err) so the chain falls through to the simulated tier; this
// subsystem's contract is "always return a usable result".
type RemoteTier struct {
	client llm.ContentExtractor
	logger *slog.Logger
}

func NewRemoteTier(client llm.ContentExtractor, logger *slog.Logger) *RemoteTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteTier{client: client, logger: logger}
}

func (t *RemoteTier) Name() string { return "remote" }

func (t *RemoteTier) TryExtract(ctx context.Context, req Request) (*entity.ExtractedDocumentData, error) {
	if t.client == nil || !t.client.HasCredential() {
		t.logger.Debug("remote tier skipped, no credential")
		return nil, nil
	}

	data, _, err := t.client.ExtractContent(ctx, llm.ExtractRequest{
		Text:         req.Text,
		FileNameHint: req.FileNameHint,
		PageCount:    req.PageCount,
	})
	if err != nil {
		var vendorErr *llm.VendorError
		switch {
		case errors.As(err, &vendorErr):
			// Auth (401-class) and rate/server (429/5xx) failures are expected
			// operating conditions, not document failures.
			t.logger.Warn("remote tier vendor failure, falling through",
				"status", vendorErr.StatusCode)
		case errors.Is(err, llm.ErrNoCredential):
			t.logger.Debug("remote tier skipped, no credential")
		default:
			t.logger.Warn("remote tier unexpected failure, falling through", "err", err)
		}
		return nil, err
	}
	return &data, nil
}
