package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"evigate/internal/evidence/models"
	"evigate/internal/evidence/registry"
	"evigate/pkg/platform/httputil"
)

// RegistryHandler serves the static compatibility and schema views. The
// tables are fixed at deploy time, so these endpoints need no service and
// no tenant scoping.
type RegistryHandler struct{}

func NewRegistry() *RegistryHandler {
	return &RegistryHandler{}
}

// Register mounts registry endpoints on the router.
func (h *RegistryHandler) Register(r chi.Router) {
	r.Get("/registry/compatibility", h.HandleCompatibility)
	r.Get("/registry/schemas/{evidenceType}", h.HandleSchema)
}

// CompatibilityEntry is one evidence type's row of the legality matrix.
type CompatibilityEntry struct {
	EvidenceType       string   `json:"evidence_type"`
	AllowedScopes      []string `json:"allowed_scopes"`
	AllowedMethods     []string `json:"allowed_methods"`
	AllowedBindTargets []string `json:"allowed_bind_targets"`
}

// HandleCompatibility handles GET /v1/registry/compatibility.
func (h *RegistryHandler) HandleCompatibility(w http.ResponseWriter, r *http.Request) {
	types := registry.EvidenceTypes()
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	entries := make([]CompatibilityEntry, 0, len(types))
	for _, t := range types {
		rule := registry.RuleFor(t)
		entries = append(entries, CompatibilityEntry{
			EvidenceType:       string(t),
			AllowedScopes:      sortedKeys(rule.AllowedScopes),
			AllowedMethods:     sortedKeys(rule.AllowedMethods),
			AllowedBindTargets: sortedKeys(rule.AllowedBindTargets),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"compatibility": entries})
}

// SchemaResponse is the payload contract for one evidence type.
type SchemaResponse struct {
	EvidenceType string             `json:"evidence_type"`
	Required     []string           `json:"required"`
	Optional     []string           `json:"optional,omitempty"`
	ItemRules    *ItemRulesResponse `json:"item_rules,omitempty"`
}

// ItemRulesResponse describes the per-row constraints of composite types.
type ItemRulesResponse struct {
	RequireOneIdentifier    bool `json:"require_one_identifier"`
	RequirePositiveQuantity bool `json:"require_positive_quantity"`
	RequireKnownUnit        bool `json:"require_known_unit"`
}

// HandleSchema handles GET /v1/registry/schemas/{evidenceType}.
func (h *RegistryHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	evidenceType, err := models.ParseEvidenceType(chi.URLParam(r, "evidenceType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	schema := registry.FieldSchemaFor(evidenceType)
	resp := SchemaResponse{
		EvidenceType: string(evidenceType),
		Required:     schema.Required,
		Optional:     schema.Optional,
	}
	if schema.ItemRules != nil {
		resp.ItemRules = &ItemRulesResponse{
			RequireOneIdentifier:    schema.ItemRules.RequireOneIdentifier,
			RequirePositiveQuantity: schema.ItemRules.RequirePositiveQuantity,
			RequireKnownUnit:        schema.ItemRules.RequireKnownUnit,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func sortedKeys[K ~string](set map[K]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}
