package entity

// ExtractedTable is one structured table pulled from a document.
type ExtractedTable struct {
	Title    string     `json:"title"`
	Rows     [][]string `json:"rows"`
	Location string     `json:"location,omitempty"`
}

// ExtractedDocumentData is the normalized shape every extraction tier produces.
type ExtractedDocumentData struct {
	Tables      []ExtractedTable  `json:"tables"`
	Summary     string            `json:"summary"`
	KeyFindings []string          `json:"keyFindings"`
	Metadata    map[string]string `json:"metadata"`
}
