// Package content turns raw document bytes into best-effort plain text and
// metadata. It never fails on malformed input; the only fatal condition is an
// unreadable source file.
package content

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Result is the metadata-stage output for one document.
type Result struct {
	Text               string
	PageCount          int
	MIMEType           string
	IsScanned          bool
	HasFinancialTables bool
}

// linesPerPage is the estimate used when a page count cannot be read from the
// file itself.
const linesPerPage = 40

type Reader struct {
	logger *slog.Logger
}

func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Read extracts text and metadata from the file at path. Malformed input
// degrades to estimates; a missing or unreadable file is the one fatal error.
func (r *Reader) Read(path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read source file: %w", err)
	}

	res := Result{MIMEType: mimetype.Detect(raw).String()}

	if strings.HasPrefix(res.MIMEType, "application/pdf") {
		text, pages, ok := r.readPDF(path, int64(len(raw)))
		if ok {
			res.Text = text
			res.PageCount = pages
		}
	}
	if res.Text == "" && looksTextual(res.MIMEType) {
		res.Text = string(raw)
	}
	if res.PageCount == 0 {
		res.PageCount = estimatePages(res.Text)
	}

	res.IsScanned = isScanned(res.MIMEType, res.Text, res.PageCount)
	res.HasFinancialTables = hasFinancialTables(res.Text)

	r.logger.Debug("content read",
		"path", path,
		"mime", res.MIMEType,
		"pages", res.PageCount,
		"text_bytes", len(res.Text),
		"scanned", res.IsScanned,
		"financial", res.HasFinancialTables,
	)
	return res, nil
}

// readPDF pulls the page count and plain text out of a PDF. The parser panics
// on some malformed files, so the whole call is fenced with recover.
func (r *Reader) readPDF(path string, size int64) (text string, pages int, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("pdf parse panic, falling back to estimate", "path", path, "panic", rec)
			text, pages, ok = "", 0, false
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return "", 0, false
	}
	defer func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("pdf close error", "path", path, "err", err)
		}
	}()

	reader, err := pdf.NewReader(f, size)
	if err != nil {
		r.logger.Warn("pdf open failed, falling back to estimate", "path", path, "err", err)
		return "", 0, false
	}

	pageCount := reader.NumPage()
	if pageCount < 1 {
		pageCount = 1
	}

	var b strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			r.logger.Warn("pdf page text failed", "path", path, "page", i, "err", err)
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), pageCount, true
}

// estimatePages derives a page count from text length: one page per ~40 lines,
// never less than 1.
func estimatePages(text string) int {
	lines := strings.Count(text, "\n") + 1
	pages := lines / linesPerPage
	if pages < 1 {
		return 1
	}
	return pages
}

func looksTextual(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch {
	case strings.HasPrefix(mime, "application/json"),
		strings.HasPrefix(mime, "application/xml"),
		strings.HasPrefix(mime, "application/csv"):
		return true
	}
	return false
}
