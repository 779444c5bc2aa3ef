package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalProvider(t *testing.T) {
	cases := []struct {
		in    string
		want  ProviderID
		known bool
	}{
		{"gemini", ProviderGemini, true},
		{"google", ProviderGemini, true},
		{"  OpenAI ", ProviderOpenAI, true},
		{"chatgpt", ProviderOpenAI, true},
		{"pixtral", ProviderMistral, true},
		{"llama", ProviderGroq, true},
		{"groq", ProviderGroq, true},
		{"", DefaultProvider, false},
		{"some-new-vendor", DefaultProvider, false},
	}
	for _, tc := range cases {
		got, known := CanonicalProvider(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, tc.known, known, "input %q", tc.in)
	}
}

func TestProvidersIncludesDefault(t *testing.T) {
	assert.Contains(t, Providers(), string(DefaultProvider))
}
