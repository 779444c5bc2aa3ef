package constants

import (
	"strings"
)

// ProviderID identifies an LLM extraction backend.
type ProviderID string

const (
	// ProviderGemini favors large context windows (long documents).
	ProviderGemini ProviderID = "gemini"
	// ProviderOpenAI favors tabular/structured extraction.
	ProviderOpenAI ProviderID = "openai"
	// ProviderMistral favors multimodal/OCR-aware extraction of scanned input.
	ProviderMistral ProviderID = "mistral"
	// ProviderGroq is the fixed default when no routing rule matches.
	ProviderGroq ProviderID = "groq"
)

// DefaultProvider is used when no routing rule matches.
const DefaultProvider = ProviderGroq

var allProviders = []ProviderID{
	ProviderGemini,
	ProviderOpenAI,
	ProviderMistral,
	ProviderGroq,
}

// Providers returns the known provider ids as strings.
func Providers() []string {
	result := make([]string, len(allProviders))
	for i, p := range allProviders {
		result[i] = string(p)
	}
	return result
}

// CanonicalProvider normalizes a provider label from rules or config.
// Unknown labels fall back to the default provider.
func CanonicalProvider(input string) (ProviderID, bool) {
	if input == "" {
		return DefaultProvider, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]ProviderID{
		"google":    ProviderGemini,
		"vertex":    ProviderGemini,
		"gpt":       ProviderOpenAI,
		"gpt-4o":    ProviderOpenAI,
		"chatgpt":   ProviderOpenAI,
		"pixtral":   ProviderMistral,
		"le-chat":   ProviderMistral,
		"llama":     ProviderGroq,
		"groqcloud": ProviderGroq,
	}

	if p, ok := synonyms[normalized]; ok {
		return p, true
	}

	for _, p := range allProviders {
		if normalized == string(p) {
			return p, true
		}
	}

	return DefaultProvider, false
}
