package content

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPlainText(t *testing.T) {
	r := NewReader(nil)
	text := "Balance Sheet\nTotal Assets: 1,000\nTotal Liabilities: 400\n"
	path := writeTemp(t, "statement.txt", text)

	res, err := r.Read(path)
	require.NoError(t, err)
	assert.Equal(t, text, res.Text)
	assert.Equal(t, 1, res.PageCount)
	assert.True(t, strings.HasPrefix(res.MIMEType, "text/"))
	assert.False(t, res.IsScanned)
	assert.True(t, res.HasFinancialTables)
}

func TestReadMissingFile(t *testing.T) {
	r := NewReader(nil)
	_, err := r.Read(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

// writeOnePagePDF assembles a minimal valid PDF by hand, recording object
// byte offsets so the xref table is exact.
func writeOnePagePDF(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int, 6)
	obj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	obj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	obj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for n := 1; n <= 5; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadWellFormedPDF(t *testing.T) {
	r := NewReader(nil)
	path := writeOnePagePDF(t, "General Ledger Summary")

	res, err := r.Read(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.MIMEType, "application/pdf"))
	assert.Equal(t, 1, res.PageCount)
	assert.Contains(t, res.Text, "General Ledger Summary")
}

func TestReadMalformedPDFDegrades(t *testing.T) {
	r := NewReader(nil)
	// A valid PDF header followed by garbage must not fail the read.
	path := writeTemp(t, "broken.pdf", "%PDF-1.7\nnot really a pdf body")

	res, err := r.Read(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.PageCount, 1)
}

func TestEstimatePages(t *testing.T) {
	assert.Equal(t, 1, estimatePages(""))
	assert.Equal(t, 1, estimatePages("one line"))
	assert.Equal(t, 2, estimatePages(strings.Repeat("line\n", 80)))
	assert.Equal(t, 11, estimatePages(strings.Repeat("line\n", 450)))
}

func TestLooksTextual(t *testing.T) {
	assert.True(t, looksTextual("text/plain; charset=utf-8"))
	assert.True(t, looksTextual("application/csv"))
	assert.False(t, looksTextual("application/pdf"))
	assert.False(t, looksTextual("image/png"))
}
