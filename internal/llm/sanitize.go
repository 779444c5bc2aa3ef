package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// NormalizeAndSanitizeJSON
// - Renames known synonyms (key_findings -> keyFindings)
// - Fills missing optional containers (tables, metadata) with empty values
// - Coerces metadata values to strings
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the schema's field names
	renamed("key_findings", "keyFindings")
	renamed("findings", "keyFindings")
	renamed("summary_text", "summary")
	renamed("meta", "metadata")

	// 2) fill required containers the model sometimes omits
	if _, ok := m["tables"]; !ok {
		m["tables"] = []any{}
	}
	if _, ok := m["metadata"]; !ok {
		m["metadata"] = map[string]any{}
	}

	// 3) coerce metadata values to strings
	if meta, ok := m["metadata"].(map[string]any); ok {
		for k, v := range meta {
			switch t := v.(type) {
			case string:
			case float64:
				meta[k] = fmt.Sprintf("%v", t)
				dropped = append(dropped, "metadata."+k+"(coerced)")
			case bool:
				meta[k] = fmt.Sprintf("%t", t)
				dropped = append(dropped, "metadata."+k+"(coerced)")
			default:
				delete(meta, k)
				dropped = append(dropped, "metadata."+k+"(removed)")
			}
		}
	}

	// 4) remove unknown top-level keys
	known := map[string]struct{}{
		"tables": {}, "summary": {}, "keyFindings": {}, "metadata": {},
	}
	for k := range m {
		if _, ok := known[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.sanitize.applied", "changes", dropped)
	}
	return out, dropped, nil
}
