// Package llm holds the vendor-facing pieces of the extraction pipeline: the
// JSON schema the vendors are constrained to, response validation, and an
// OpenAI-compatible chat/completions client.
package llm

import (
	"context"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// ExtractRequest carries document text plus hints into a vendor call.
type ExtractRequest struct {
	Text         string
	FileNameHint string
	PageCount    int
}

// ContentExtractor is the interface the remote tier depends on.
type ContentExtractor interface {
	// ExtractContent returns the structured payload and the raw vendor JSON.
	ExtractContent(ctx context.Context, req ExtractRequest) (entity.ExtractedDocumentData, []byte, error)
	// HasCredential reports whether the client is configured to call out at all.
	HasCredential() bool
}
