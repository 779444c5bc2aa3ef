package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

func TestRouteDefaultRules(t *testing.T) {
	e := NewEngine(nil)
	rules := DefaultRules()

	cases := []struct {
		name  string
		chars Characteristics
		want  constants.ProviderID
	}{
		{"long document", Characteristics{PageCount: 15}, constants.ProviderGemini},
		{"boundary page count does not match", Characteristics{PageCount: 10}, constants.DefaultProvider},
		{"financial tables", Characteristics{PageCount: 3, HasFinancialTables: true}, constants.ProviderOpenAI},
		{"scanned", Characteristics{PageCount: 2, IsScanned: true}, constants.ProviderMistral},
		{"long wins over financial", Characteristics{PageCount: 15, HasFinancialTables: true}, constants.ProviderGemini},
		{"financial wins over scanned", Characteristics{PageCount: 2, HasFinancialTables: true, IsScanned: true}, constants.ProviderOpenAI},
		{"nothing matches", Characteristics{PageCount: 1}, constants.DefaultProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Route(tc.chars, rules))
		})
	}
}

func TestRouteEmptyRulesFallsBackToDefaults(t *testing.T) {
	e := NewEngine(nil)
	assert.Equal(t, constants.ProviderGemini, e.Route(Characteristics{PageCount: 40}, nil))
	assert.Equal(t, constants.DefaultProvider, e.Route(Characteristics{PageCount: 1}, nil))
}

func TestRouteSkipsInactiveAndUnknown(t *testing.T) {
	e := NewEngine(nil)
	rules := []entity.RoutingRule{
		{Condition: CondPageCountGt10, Provider: "gemini", Priority: 1, IsActive: false},
		{Condition: "page_count_prime", Provider: "openai", Priority: 2, IsActive: true},
		{Condition: CondAlways, Provider: "mistral", Priority: 3, IsActive: true},
	}
	assert.Equal(t, constants.ProviderMistral, e.Route(Characteristics{PageCount: 50}, rules))
}

func TestRoutePriorityOrderNotListOrder(t *testing.T) {
	e := NewEngine(nil)
	rules := []entity.RoutingRule{
		{Condition: CondAlways, Provider: "groq", Priority: 90, IsActive: true},
		{Condition: CondIsScanned, Provider: "mistral", Priority: 10, IsActive: true},
	}
	assert.Equal(t, constants.ProviderMistral, e.Route(Characteristics{IsScanned: true}, rules))
}

func TestRouteUnknownProviderUsesDefault(t *testing.T) {
	e := NewEngine(nil)
	rules := []entity.RoutingRule{
		{Condition: CondAlways, Provider: "made-up-llm", Priority: 1, IsActive: true},
	}
	assert.Equal(t, constants.DefaultProvider, e.Route(Characteristics{}, rules))
}

func TestRouteIsDeterministic(t *testing.T) {
	e := NewEngine(nil)
	chars := Characteristics{PageCount: 15, HasFinancialTables: true, IsScanned: true}
	rules := DefaultRules()
	first := e.Route(chars, rules)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, e.Route(chars, rules))
	}
}

func TestDefaultRuleIDsAreStable(t *testing.T) {
	a := DefaultRules()
	b := DefaultRules()
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}
