package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/kelechi-nwosu/docpipeline/constants"
)

// Adapter is one provider's extraction entry point. It owns an ordered tier
// chain and absorbs tier failures; Extract never returns an unusable result.
type Adapter struct {
	provider constants.ProviderID
	tiers    []Tier
	logger   *slog.Logger
}

func NewAdapter(provider constants.ProviderID, tiers []Tier, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{provider: provider, tiers: tiers, logger: logger}
}

func (a *Adapter) Provider() constants.ProviderID { return a.provider }

// Extract walks the tiers in order and returns the first non-empty result.
// Each tier is tried exactly once.
func (a *Adapter) Extract(ctx context.Context, req Request) Result {
	start := time.Now()
	var lastErr string
	for _, tier := range a.tiers {
		data, err := tier.TryExtract(ctx, req)
		if err != nil {
			lastErr = err.Error()
			a.logger.Warn("extract.tier.failed",
				"provider", a.provider, "tier", tier.Name(), "err", err)
			continue
		}
		if data == nil {
			a.logger.Debug("extract.tier.no_result", "provider", a.provider, "tier", tier.Name())
			continue
		}
		a.logger.Info("extract.ok",
			"provider", a.provider,
			"tier", tier.Name(),
			"tables", len(data.Tables),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{Success: true, Content: data, Tier: tier.Name()}
	}

	// Unreachable with a simulated tier installed; kept for adapters built
	// with a custom chain.
	a.logger.Error("extract.exhausted", "provider", a.provider, "err", lastErr)
	return Result{Success: false, Error: lastErr}
}

// Registry maps provider ids to their adapters.
type Registry struct {
	byProvider map[constants.ProviderID]*Adapter
	fallback   *Adapter
}

func NewRegistry() *Registry {
	return &Registry{byProvider: make(map[constants.ProviderID]*Adapter)}
}

// Register adds an adapter; the first registered adapter doubles as the
// fallback for unknown provider ids.
func (r *Registry) Register(a *Adapter) {
	if r.fallback == nil {
		r.fallback = a
	}
	r.byProvider[a.Provider()] = a
}

// Resolve returns the adapter for a provider, or the fallback when the id is
// unknown. Resolve is total as long as at least one adapter is registered.
func (r *Registry) Resolve(provider constants.ProviderID) *Adapter {
	if a, ok := r.byProvider[provider]; ok {
		return a
	}
	return r.fallback
}
