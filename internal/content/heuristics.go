package content

import "strings"

// financialKeywords are the section markers that indicate structured
// financial-statement content.
var financialKeywords = []string{
	"balance sheet",
	"profit and loss",
	"profit & loss",
	"income statement",
	"cash flow",
	"total assets",
	"total liabilities",
	"shareholders' equity",
	"total revenue",
	"operating expenses",
	"net income",
}

// hasFinancialTables reports whether the text reads like a financial statement:
// at least two distinct section/line-item keywords present.
func hasFinancialTables(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// scannedCharsPerPage is the text-density floor below which a multi-page
// document is treated as scanned (image-only pages yield almost no text).
const scannedCharsPerPage = 100

func isScanned(mime, text string, pageCount int) bool {
	if strings.HasPrefix(mime, "image/") {
		return true
	}
	if !strings.HasPrefix(mime, "application/pdf") {
		return false
	}
	if pageCount < 1 {
		pageCount = 1
	}
	return len(strings.TrimSpace(text))/pageCount < scannedCharsPerPage
}
