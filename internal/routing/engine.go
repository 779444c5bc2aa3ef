// Package routing selects an LLM provider for a document from an ordered rule
// set. Evaluation is pure: identical characteristics and rules always yield the
// same provider.
package routing

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// Characteristics are the document traits rules are evaluated against.
type Characteristics struct {
	PageCount          int
	HasFinancialTables bool
	IsScanned          bool
}

// Symbolic condition names understood by the engine. Unknown names never match.
const (
	CondPageCountGt10      = "page_count_gt_10"
	CondHasFinancialTables = "has_financial_tables"
	CondIsScanned          = "is_scanned"
	CondAlways             = "always"
)

// KnownConditions lists the predicate names a rule's condition may use.
var KnownConditions = []string{
	CondPageCountGt10,
	CondHasFinancialTables,
	CondIsScanned,
	CondAlways,
}

var predicates = map[string]func(Characteristics) bool{
	CondPageCountGt10:      func(c Characteristics) bool { return c.PageCount > 10 },
	CondHasFinancialTables: func(c Characteristics) bool { return c.HasFinancialTables },
	CondIsScanned:          func(c Characteristics) bool { return c.IsScanned },
	CondAlways:             func(Characteristics) bool { return true },
}

// ruleID derives a stable id from the condition name so reseeding updates the
// built-in rows in place instead of duplicating them.
func ruleID(condition string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("docpipeline.routing_rule."+condition))
}

// DefaultRules is the built-in ordering used when no custom rules are
// configured: long documents to the large-context provider, financial tables
// to the structured-extraction provider, scanned input to the multimodal one.
func DefaultRules() []entity.RoutingRule {
	return []entity.RoutingRule{
		{ID: ruleID(CondPageCountGt10), Condition: CondPageCountGt10, Provider: string(constants.ProviderGemini), Rationale: "long documents need a large context window", Priority: 10, IsActive: true},
		{ID: ruleID(CondHasFinancialTables), Condition: CondHasFinancialTables, Provider: string(constants.ProviderOpenAI), Rationale: "strongest tabular/structured extraction", Priority: 20, IsActive: true},
		{ID: ruleID(CondIsScanned), Condition: CondIsScanned, Provider: string(constants.ProviderMistral), Rationale: "multimodal, OCR-aware extraction", Priority: 30, IsActive: true},
	}
}

type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Route evaluates active rules in priority order and returns the first match's
// provider. It is total: with no match (or no rules) the fixed default wins.
func (e *Engine) Route(chars Characteristics, rules []entity.RoutingRule) constants.ProviderID {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	ordered := make([]entity.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	for _, rule := range ordered {
		if !rule.IsActive {
			continue
		}
		pred, ok := predicates[rule.Condition]
		if !ok {
			e.logger.Warn("unknown routing condition, skipping", "condition", rule.Condition, "rule_id", rule.ID)
			continue
		}
		if pred(chars) {
			provider, known := constants.CanonicalProvider(rule.Provider)
			if !known {
				e.logger.Warn("rule names unknown provider, using default", "provider", rule.Provider, "rule_id", rule.ID)
			}
			e.logger.Debug("routing matched",
				"condition", rule.Condition,
				"provider", provider,
				"priority", rule.Priority,
			)
			return provider
		}
	}

	e.logger.Debug("no routing rule matched, using default", "provider", constants.DefaultProvider)
	return constants.DefaultProvider
}
