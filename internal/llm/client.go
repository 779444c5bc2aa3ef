package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// Config for a chat client. All supported vendors speak the OpenAI-compatible
// chat/completions dialect, so one client serves every provider.
type Config struct {
	Provider    string        // provider id, for logging
	BaseURL     string        // e.g. https://api.openai.com/v1
	Model       string        // e.g. gpt-4o-mini
	APIKey      string        // empty -> HasCredential() == false
	Temperature float32       // 0..2
	Timeout     time.Duration // overall per-request timeout
	MaxChars    int           // input truncation guard (token budget)
	RatePerSec  float64       // outbound request rate, 0 -> unlimited
	RateBurst   int
}

// VendorError carries the HTTP status of a failed vendor call so callers can
// classify auth/rate/server failures.
type VendorError struct {
	StatusCode int
	Body       string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor status %d: %s", e.StatusCode, e.Body)
}

// ErrNoCredential is returned when ExtractContent is called without an API key.
var ErrNoCredential = errors.New("no api credential configured")

type ChatClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewChatClient(cfg Config, logger *slog.Logger) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 4000
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return &ChatClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     logger,
	}
}

func (c *ChatClient) HasCredential() bool {
	return c.cfg.APIKey != ""
}

// ExtractContent implements ContentExtractor via text-only chat/completions
// with a JSON-schema constrained response.
func (c *ChatClient) ExtractContent(ctx context.Context, req ExtractRequest) (entity.ExtractedDocumentData, []byte, error) {
	if !c.HasCredential() {
		return entity.ExtractedDocumentData{}, nil, ErrNoCredential
	}

	rid := uuid.New().String()
	start := time.Now()

	text := req.Text
	if len(text) > c.cfg.MaxChars {
		text = text[:c.cfg.MaxChars]
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", c.cfg.Provider,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
		"truncated", len(text) < len(req.Text),
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return entity.ExtractedDocumentData{}, nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	schema := BuildExtractionJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt()},
			{"role": "user", "content": buildUserPrompt(text, req.FileNameHint, req.PageCount) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		if status != 0 {
			err = &VendorError{StatusCode: status, Body: truncateForLog(string(raw), 256)}
		}
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "provider", c.cfg.Provider, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedDocumentData{}, raw, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedDocumentData{}, raw, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedDocumentData{}, raw, fmt.Errorf("no choices in chat response")
	}
	rawContent := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	// Validate strictly first; retry once through the lenient sanitizer.
	if err := ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		cleaned, dropped, sErr := NormalizeAndSanitizeJSON(rawContent, c.log)
		if sErr != nil {
			c.log.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.ExtractedDocumentData{}, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.ExtractedDocumentData{}, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", rid, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	var out entity.ExtractedDocumentData
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedDocumentData{}, rawContent, fmt.Errorf("unmarshal content: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"provider", c.cfg.Provider,
		"tables", len(out.Tables),
		"findings", len(out.KeyFindings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

func buildSystemPrompt() string {
	parts := []string{
		"You are a financial document analyst. Return ONLY JSON that matches the JSON Schema provided.",
		"Extract every recognizable table (balance sheet, profit and loss, cash flow) into 'tables' with a title and string rows.",
		"Write a short factual 'summary' of the document.",
		"List 3-5 concrete 'keyFindings' (figures, trends, anomalies).",
		"Put document-level facts (period, currency, company) into 'metadata' as strings.",
		"Never output null. If a table has no location, omit the field.",
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(text, filename string, pageCount int) string {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(filename)
	if pageCount > 0 {
		fmt.Fprintf(&b, "\nPages: %d", pageCount)
	}
	b.WriteString("\n\nDocument text (truncated):\n")
	b.WriteString(text)
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
