package extract

import (
	"log/slog"
	"time"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/llm"
)

// BuildRegistry wires one adapter per provider. Each adapter runs the pattern
// tier first, then the provider's remote backend, then the simulated tier, so
// extraction always produces something.
func BuildRegistry(cfg *common.Config, logger *slog.Logger) *Registry {
	registry := NewRegistry()

	pattern := NewPatternTier(logger)
	simulated := NewSimulatedTier(logger, time.Now().UnixNano())

	backends := map[constants.ProviderID]common.ProviderConfig{
		constants.ProviderGemini:  cfg.Providers.Gemini,
		constants.ProviderOpenAI:  cfg.Providers.OpenAI,
		constants.ProviderMistral: cfg.Providers.Mistral,
		constants.ProviderGroq:    cfg.Providers.Groq,
	}

	// The default provider registers first so Resolve falls back to it.
	order := []constants.ProviderID{constants.DefaultProvider}
	for _, name := range constants.Providers() {
		order = append(order, constants.ProviderID(name))
	}
	seen := make(map[constants.ProviderID]bool, len(order))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		pc := backends[id]
		client := llm.NewChatClient(llm.Config{
			Provider:    string(id),
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			APIKey:      pc.APIKey,
			Temperature: pc.Temp,
			Timeout:     cfg.Pipeline.RemoteTimeout,
			MaxChars:    cfg.Pipeline.RemoteMaxChars,
			RatePerSec:  cfg.Pipeline.RemoteRatePerSec,
			RateBurst:   cfg.Pipeline.RemoteRateBurst,
		}, logger)
		registry.Register(NewAdapter(id, []Tier{
			pattern,
			NewRemoteTier(client, logger),
			simulated,
		}, logger))
	}
	return registry
}
