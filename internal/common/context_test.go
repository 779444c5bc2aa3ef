package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestDocumentIDRoundTrip(t *testing.T) {
	ctx := WithDocumentID(context.Background(), "doc-1")
	assert.Equal(t, "doc-1", DocumentIDFromContext(ctx))
	assert.Empty(t, DocumentIDFromContext(context.Background()))
}

func TestWithTimeoutSetsDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
}
