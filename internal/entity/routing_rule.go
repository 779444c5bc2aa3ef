package entity

import "github.com/google/uuid"

// RoutingRule maps a document characteristic predicate to a provider.
// Rules are administrator-owned and read-only to the pipeline.
type RoutingRule struct {
	ID        uuid.UUID `json:"id"`
	Condition string    `json:"condition"` // symbolic predicate name, see routing.KnownConditions
	Provider  string    `json:"provider"`
	Rationale string    `json:"rationale,omitempty"`
	Priority  int       `json:"priority"` // lower evaluates first
	IsActive  bool      `json:"is_active"`
}
