package server

import (
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/routing"
)

// handleListRules returns the active routing rules in evaluation order.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.rules.ListActive(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rules)
}

type upsertRuleRequest struct {
	ID        string `json:"id,omitempty"`
	Condition string `json:"condition"`
	Provider  string `json:"provider"`
	Rationale string `json:"rationale,omitempty"`
	Priority  int    `json:"priority"`
	IsActive  bool   `json:"isActive"`
}

// handleUpsertRule creates or updates one routing rule.
func (s *Server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	var req upsertRuleRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	v := common.NewValidator()
	v.Field("condition", req.Condition, common.Required)
	v.Field("provider", req.Provider, common.Required)
	v.Field("rationale", req.Rationale, common.MaxLen(500))
	if req.ID != "" {
		v.Field("id", req.ID, common.UUID)
	}
	if err := v.Error(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !slices.Contains(routing.KnownConditions, req.Condition) {
		s.writeError(w, r, common.InvalidArgumentErrorf("unknown condition %q", req.Condition))
		return
	}
	provider, known := constants.CanonicalProvider(req.Provider)
	if !known {
		s.writeError(w, r, common.InvalidArgumentErrorf("unknown provider %q", req.Provider))
		return
	}

	rule := entity.RoutingRule{
		Condition: req.Condition,
		Provider:  string(provider),
		Rationale: req.Rationale,
		Priority:  req.Priority,
		IsActive:  req.IsActive,
	}
	if req.ID != "" {
		rule.ID = uuid.MustParse(req.ID)
	}
	if err := s.rules.Upsert(r.Context(), &rule); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rule)
}
