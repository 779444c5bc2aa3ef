package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/broadcast"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/content"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/export"
	"github.com/kelechi-nwosu/docpipeline/internal/extract"
	"github.com/kelechi-nwosu/docpipeline/internal/ingest"
	"github.com/kelechi-nwosu/docpipeline/internal/orchestrator"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
	"github.com/kelechi-nwosu/docpipeline/internal/routing"
)

type testEnv struct {
	ts   *httptest.Server
	docs repository.DocumentRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:", MaxConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db, nil))

	docs := repository.NewDocumentRepository(db, nil)
	rules := repository.NewRuleRepository(db, nil)

	claims := orchestrator.NewClaimSet()
	caster := broadcast.NewBroadcaster(docs, claims, nil)

	registry := extract.NewRegistry()
	registry.Register(extract.NewAdapter(constants.DefaultProvider, []extract.Tier{
		extract.NewPatternTier(nil),
		extract.NewSimulatedTier(nil, 1),
	}, nil))
	orch := orchestrator.New(nil, docs, rules, content.NewReader(nil), routing.NewEngine(nil), registry, caster, claims)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		orch.Shutdown(shutdownCtx)
	})

	srv := New(common.ServerConfig{
		Addr:           ":0",
		MaxUploadBytes: 1 << 20,
		UploadDir:      t.TempDir(),
	}, db, ingest.NewService(docs, nil), orch, caster, export.NewService(docs, nil), rules, nil)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, docs: docs}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) registerDoc(t *testing.T, text string) uuid.UUID {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	payload, _ := json.Marshal(map[string]string{"path": path})
	resp, raw := e.do(t, http.MethodPost, "/api/v1/documents", bytes.NewReader(payload), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var doc entity.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc.ID
}

func (e *testEnv) waitForStatus(t *testing.T, id uuid.UUID, want constants.DocStatus) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := e.docs.GetByID(context.Background(), id)
		require.NoError(t, err)
		if doc.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", want)
}

const statementBody = `Balance Sheet

- Cash and Equivalents: 120,000
- Accounts Receivable: 40,000
- Total Assets: 160,000
- Total Liabilities: 60,000
- Shareholders' Equity: 100,000
`

func TestUploadByPath(t *testing.T) {
	e := newTestEnv(t)
	id := e.registerDoc(t, "hello world")

	resp, raw := e.do(t, http.MethodGet, "/api/v1/documents/"+id.String(), nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doc entity.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, constants.StatusQueued, doc.Status)
	assert.Equal(t, "doc.txt", doc.FileName)
	assert.NotEmpty(t, doc.ContentHash)
}

func TestUploadByPathValidation(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/api/v1/documents", strings.NewReader(`{"path":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := e.do(t, http.MethodPost, "/api/v1/documents", strings.NewReader(`{"path":"/tmp/x.txt","bogus":1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NotEmpty(t, body.Error)
}

func TestUploadMultipart(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("quarterly numbers"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, raw := e.do(t, http.MethodPost, "/api/v1/documents", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var doc entity.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "report.txt", doc.FileName)
	assert.Equal(t, int64(len("quarterly numbers")), doc.FileSize)
}

func TestUploadMultipartMissingPart(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	resp, _ := e.do(t, http.MethodPost, "/api/v1/documents", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetDocumentErrors(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/v1/documents/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/documents/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessLifecycle(t *testing.T) {
	e := newTestEnv(t)
	id := e.registerDoc(t, statementBody)

	resp, raw := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/process", id), nil, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))
	var ack map[string]string
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, "processing", ack["state"])

	e.waitForStatus(t, id, constants.StatusCompleted)

	resp, raw = e.do(t, http.MethodGet, "/api/v1/documents/"+id.String(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc entity.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 100, doc.Progress)
	assert.NotEmpty(t, doc.ExtractedContent)
}

func TestRetryRequiresTerminalFailure(t *testing.T) {
	e := newTestEnv(t)
	id := e.registerDoc(t, statementBody)

	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/retry", id), nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "QUEUED documents cannot be retried")
}

func TestStopAbandonsQueuedDocument(t *testing.T) {
	e := newTestEnv(t)
	id := e.registerDoc(t, statementBody)

	resp, raw := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/stop", id), nil, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var ack map[string]string
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, "stopping", ack["state"])

	e.waitForStatus(t, id, constants.StatusStopped)
}

func TestExportCompletedDocument(t *testing.T) {
	e := newTestEnv(t)
	id := e.registerDoc(t, statementBody)

	// Export before completion is rejected.
	resp, _ := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/export", id), nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%s/process", id), nil, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	e.waitForStatus(t, id, constants.StatusCompleted)

	resp, raw := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/export", id), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx is a zip container")
}

func TestStatsAndHealth(t *testing.T) {
	e := newTestEnv(t)

	resp, raw := e.do(t, http.MethodGet, "/api/v1/stats", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats entity.Stats
	require.NoError(t, json.Unmarshal(raw, &stats))

	resp, raw = e.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "ok", health["status"])
}

func TestRoutingRulesRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	body := `{"condition":"has_financial_tables","provider":"OpenAI","rationale":"tabular extraction","priority":20,"isActive":true}`
	resp, raw := e.do(t, http.MethodPut, "/api/v1/routing-rules", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var rule entity.RoutingRule
	require.NoError(t, json.Unmarshal(raw, &rule))
	assert.Equal(t, string(constants.ProviderOpenAI), rule.Provider, "provider name is canonicalized")
	assert.NotEqual(t, uuid.Nil, rule.ID, "server assigns an id when the client omits one")

	resp, raw = e.do(t, http.MethodGet, "/api/v1/routing-rules", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rules []entity.RoutingRule
	require.NoError(t, json.Unmarshal(raw, &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "has_financial_tables", rules[0].Condition)
}

func TestUpsertRuleValidation(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing provider", `{"condition":"always","priority":1,"isActive":true}`},
		{"unknown condition", `{"condition":"phase_of_moon","provider":"groq","priority":1,"isActive":true}`},
		{"unknown provider", `{"condition":"always","provider":"clippy","priority":1,"isActive":true}`},
		{"bad id", `{"id":"nope","condition":"always","provider":"groq","priority":1,"isActive":true}`},
		{"unknown field", `{"condition":"always","provider":"groq","extra":true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := e.do(t, http.MethodPut, "/api/v1/routing-rules", strings.NewReader(tc.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
		})
	}
}

func TestDocumentStreamSnapshotFirst(t *testing.T) {
	e := newTestEnv(t)
	id := e.registerDoc(t, statementBody)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.ts.URL+fmt.Sprintf("/api/v1/documents/%s/stream", id), nil)
	require.NoError(t, err)
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", line)
	data, err := r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data: "))

	var doc entity.Document
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &doc))
	assert.Equal(t, id, doc.ID)
}

func TestDocumentStreamUnknownDocumentIs404(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/stream", uuid.NewString()), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
