// Package handler exposes the business-entity directory over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evigate/internal/entity/models"
	evidence "evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
	"evigate/pkg/platform/httputil"
	"evigate/pkg/requestcontext"
)

// Service defines the directory operations the handler consumes.
type Service interface {
	Create(ctx context.Context, tenantID id.TenantID, entityType evidence.EntityType, stub models.Stub) (*models.Entity, error)
	Read(ctx context.Context, tenantID id.TenantID, entityID id.EntityID) (*models.Entity, error)
	Search(ctx context.Context, tenantID id.TenantID, entityType evidence.EntityType, query string) ([]*models.Entity, error)
}

// Handler wires entity endpoints to the directory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts entity endpoints on the router. The kind segment selects
// the entity type: suppliers or products.
func (h *Handler) Register(r chi.Router) {
	r.Post("/entities/{kind}", h.HandleCreate)
	r.Get("/entities/{kind}", h.HandleSearch)
	r.Get("/entities/{kind}/{entityID}", h.HandleRead)
}

// CreateRequest is the HTTP request body for POST /v1/entities/{kind}.
type CreateRequest struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Validate trims the stub fields; type-specific identity rules are enforced
// by the domain constructor.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}

// HandleCreate handles POST /v1/entities/{kind}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := requestcontext.CorrelationID(ctx)

	entityType, ok := h.kind(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, corrID)
	if !ok {
		return
	}

	e, err := h.service.Create(ctx, requestcontext.TenantID(ctx), entityType, models.Stub{
		Name:        req.Name,
		CountryCode: req.CountryCode,
		Code:        req.Code,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "entity created",
		"correlation_id", corrID,
		"entity_id", e.ID.String(),
		"entity_type", string(e.Type),
	)
	httputil.WriteJSON(w, http.StatusCreated, e)
}

// HandleRead handles GET /v1/entities/{kind}/{entityID}.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityType, ok := h.kind(w, r)
	if !ok {
		return
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	e, err := h.service.Read(ctx, requestcontext.TenantID(ctx), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// The kind segment must match the stored type; a supplier fetched
	// through /products is a 404, not a leak of its existence.
	if e.Type != entityType {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "entity not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

// HandleSearch handles GET /v1/entities/{kind}?q=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityType, ok := h.kind(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	entities, err := h.service.Search(ctx, requestcontext.TenantID(ctx), entityType, query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entities == nil {
		entities = []*models.Entity{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (h *Handler) kind(w http.ResponseWriter, r *http.Request) (evidence.EntityType, bool) {
	switch chi.URLParam(r, "kind") {
	case "suppliers":
		return evidence.EntitySupplier, true
	case "products":
		return evidence.EntityProduct, true
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown entity kind; use suppliers or products"))
		return "", false
	}
}
