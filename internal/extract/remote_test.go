package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/llm"
)

type stubExtractor struct {
	hasCred bool
	data    entity.ExtractedDocumentData
	err     error
	calls   int
}

func (s *stubExtractor) HasCredential() bool { return s.hasCred }

func (s *stubExtractor) ExtractContent(context.Context, llm.ExtractRequest) (entity.ExtractedDocumentData, []byte, error) {
	s.calls++
	return s.data, nil, s.err
}

func TestRemoteTierSkipsWithoutCredential(t *testing.T) {
	stub := &stubExtractor{hasCred: false}
	tier := NewRemoteTier(stub, nil)

	data, err := tier.TryExtract(context.Background(), Request{Text: "x"})
	assert.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 0, stub.calls, "no credential means no network call")
}

func TestRemoteTierNilClient(t *testing.T) {
	tier := NewRemoteTier(nil, nil)
	data, err := tier.TryExtract(context.Background(), Request{})
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestRemoteTierVendorErrorFallsThrough(t *testing.T) {
	stub := &stubExtractor{hasCred: true, err: &llm.VendorError{StatusCode: 429, Body: "rate limited"}}
	tier := NewRemoteTier(stub, nil)

	data, err := tier.TryExtract(context.Background(), Request{Text: "x"})
	assert.Error(t, err)
	assert.Nil(t, data)
}

func TestRemoteTierSuccess(t *testing.T) {
	stub := &stubExtractor{hasCred: true, data: *stubContent("remote")}
	tier := NewRemoteTier(stub, nil)

	data, err := tier.TryExtract(context.Background(), Request{Text: "x", FileNameHint: "a.pdf", PageCount: 2})
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "remote", data.Metadata["extraction_method"])
}
