// Package extract implements the three-tier extraction fallback chain: a
// pattern pass over the raw text, a remote vendor call, and a simulated
// generator as the floor. An adapter walks its tiers in order and stops at the
// first one that yields content, so extraction as a whole never fails.
package extract

import (
	"context"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// Tier is one strategy in the ordered fallback chain. Returning (nil, nil)
// means "no result here, try the next tier"; an error is recorded by the
// adapter and treated the same way.
type Tier interface {
	Name() string
	TryExtract(ctx context.Context, req Request) (*entity.ExtractedDocumentData, error)
}

// Request carries the document text plus hints through the chain.
type Request struct {
	Text         string
	FileNameHint string
	PageCount    int
}

// Result is the adapter's contract with the orchestrator. Success is always
// true in practice: the simulated tier cannot fail.
type Result struct {
	Success bool                          `json:"success"`
	Content *entity.ExtractedDocumentData `json:"content,omitempty"`
	Error   string                        `json:"error,omitempty"`
	Tier    string                        `json:"tier,omitempty"` // which tier produced the content
}
