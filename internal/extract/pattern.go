package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// minPatternMetrics is the match density required before the pattern tier
// claims the document; below it the chain falls through to the remote tier.
const minPatternMetrics = 4

// lineItemRe matches financial line items of the form
// "- Label: amount" or "Label: $1,234.56" (parentheses mean negative).
var lineItemRe = regexp.MustCompile(`(?m)^\s*-?\s*([A-Za-z][A-Za-z &/'().-]{2,60}?):\s*\$?\s*(\(?-?[\d,]+(?:\.\d{1,2})?\)?)\s*$`)

var sectionMarkers = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Balance Sheet", regexp.MustCompile(`(?i)\bbalance\s+sheet\b`)},
	{"Profit and Loss", regexp.MustCompile(`(?i)\b(profit\s*(and|&)\s*loss|income\s+statement)\b`)},
	{"Cash Flow", regexp.MustCompile(`(?i)\bcash\s+flow\b`)},
}

// metric buckets matched against label keywords, used for the running totals
// behind the synthesized summary. Order matters: first match wins.
var buckets = []struct {
	name     string
	keywords []string
}{
	{"liabilities", []string{"liabilit", "payable", "debt", "loan", "obligation"}},
	{"equity", []string{"equity", "capital", "retained earnings", "shares"}},
	{"assets", []string{"asset", "cash", "receivable", "inventory", "property", "equipment"}},
	{"expenses", []string{"expense", "cost", "depreciation", "amortization", "salaries", "rent"}},
	{"revenue", []string{"revenue", "sales", "income", "turnover"}},
}

// PatternTier pulls structured tables out of plain text with fixed regular
// expressions tuned for financial statements. No network involved.
type PatternTier struct {
	logger *slog.Logger
}

func NewPatternTier(logger *slog.Logger) *PatternTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternTier{logger: logger}
}

func (t *PatternTier) Name() string { return "pattern" }

func (t *PatternTier) TryExtract(_ context.Context, req Request) (*entity.ExtractedDocumentData, error) {
	matches := lineItemRe.FindAllStringSubmatch(req.Text, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	type item struct {
		label  string
		raw    string
		amount float64
		ok     bool
	}
	seen := make(map[string]struct{})
	items := make([]item, 0, len(matches))
	for _, m := range matches {
		label := strings.TrimSpace(m[1])
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		amount, ok := parseAmount(m[2])
		items = append(items, item{label: label, raw: m[2], amount: amount, ok: ok})
	}

	if len(items) < minPatternMetrics {
		t.logger.Debug("pattern tier below match density", "distinct_metrics", len(items))
		return nil, nil
	}

	// Running totals per bucket.
	totals := map[string]float64{}
	for _, it := range items {
		if !it.ok {
			continue
		}
		if bucket, ok := bucketFor(it.label); ok {
			totals[bucket] += it.amount
		}
	}

	// One table per detected section, or a single generic one.
	title := "Financial Metrics"
	for _, sec := range sectionMarkers {
		if sec.re.MatchString(req.Text) {
			title = sec.name
			break
		}
	}
	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{"Item", "Amount"})
	for _, it := range items {
		rows = append(rows, []string{it.label, strings.TrimSpace(it.raw)})
	}

	data := &entity.ExtractedDocumentData{
		Tables: []entity.ExtractedTable{
			{Title: title, Rows: rows},
		},
		Summary:     buildSummary(title, len(items), totals),
		KeyFindings: buildFindings(items[0].label, totals),
		Metadata: map[string]string{
			"extraction_method": "pattern",
			"metric_count":      strconv.Itoa(len(items)),
		},
	}

	t.logger.Info("pattern tier matched",
		"metrics", len(items),
		"table", title,
		"buckets", len(totals),
	)
	return data, nil
}

func bucketFor(label string) (string, bool) {
	lower := strings.ToLower(label)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.name, true
			}
		}
	}
	return "", false
}

// parseAmount handles "1,234.56", "$1,234", and "(500)" accounting negatives.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func buildSummary(section string, metricCount int, totals map[string]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s with %d line items extracted by structural matching.", section, metricCount)
	if rev, ok := totals["revenue"]; ok {
		fmt.Fprintf(&b, " Total revenue items sum to %.2f.", rev)
	}
	if assets, ok := totals["assets"]; ok {
		fmt.Fprintf(&b, " Asset items sum to %.2f.", assets)
	}
	return b.String()
}

func buildFindings(firstLabel string, totals map[string]float64) []string {
	findings := []string{
		fmt.Sprintf("Leading line item: %s", firstLabel),
	}
	order := []string{"revenue", "expenses", "assets", "liabilities", "equity"}
	for _, bucket := range order {
		if v, ok := totals[bucket]; ok {
			findings = append(findings, fmt.Sprintf("Aggregate %s: %.2f", bucket, v))
		}
		if len(findings) == 5 {
			break
		}
	}
	if rev, okR := totals["revenue"]; okR {
		if exp, okE := totals["expenses"]; okE && len(findings) < 5 {
			findings = append(findings, fmt.Sprintf("Implied operating result: %.2f", rev-exp))
		}
	}
	if len(findings) < 3 {
		findings = append(findings, "Document matched structural financial-statement patterns")
	}
	return findings
}
