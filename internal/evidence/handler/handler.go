// Package handler exposes the draft lifecycle and sealed-record reads over
// HTTP. Handlers parse and validate; all state changes go through the
// lifecycle service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evigate/internal/evidence/models"
	"evigate/internal/evidence/service"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/httputil"
	"evigate/pkg/requestcontext"
)

// Service defines the draft lifecycle operations the handler consumes.
type Service interface {
	CreateDraft(ctx context.Context, in service.IntakeInput) (*models.EvidenceDraft, error)
	GetDraft(ctx context.Context, draftID id.DraftID) (*models.EvidenceDraft, error)
	AttachPayload(ctx context.Context, draftID id.DraftID, payload map[string]any, attestation string) (*models.EvidenceDraft, error)
	Abandon(ctx context.Context, draftID id.DraftID) (*models.EvidenceDraft, error)
	Seal(ctx context.Context, draftID id.DraftID) (*models.EvidenceRecord, error)
	GetRecord(ctx context.Context, recordID id.RecordID) (*models.EvidenceRecord, error)
	ListRecords(ctx context.Context) ([]*models.EvidenceRecord, error)
}

// Handler wires evidence endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an evidence handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/drafts", h.HandleCreateDraft)
	r.Get("/drafts/{draftID}", h.HandleGetDraft)
	r.Post("/drafts/{draftID}/payload", h.HandleAttachPayload)
	r.Post("/drafts/{draftID}/seal", h.HandleSeal)
	r.Post("/drafts/{draftID}/abandon", h.HandleAbandon)
	r.Get("/records", h.HandleListRecords)
	r.Get("/records/{recordID}", h.HandleGetRecord)
}

// HandleCreateDraft handles POST /v1/drafts.
func (h *Handler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := requestcontext.CorrelationID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IntakeRequest](w, r, h.logger, ctx, corrID)
	if !ok {
		return
	}

	d, err := h.service.CreateDraft(ctx, req.ParsedInput())
	if err != nil {
		h.logger.WarnContext(ctx, "intake rejected",
			"correlation_id", corrID,
			"evidence_type", req.EvidenceType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "draft created",
		"correlation_id", corrID,
		"draft_id", d.ID.String(),
		"evidence_type", string(d.EvidenceType),
		"binding_mode", string(d.BindingMode),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDraft(d, corrID))
}

// HandleGetDraft handles GET /v1/drafts/{draftID}.
func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}

	d, err := h.service.GetDraft(ctx, draftID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDraft(d, requestcontext.CorrelationID(ctx)))
}

// HandleAttachPayload handles POST /v1/drafts/{draftID}/payload. The
// response is 200 either way; the draft's resulting status (validated or
// quarantined) travels in the body.
func (h *Handler) HandleAttachPayload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := requestcontext.CorrelationID(ctx)

	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PayloadRequest](w, r, h.logger, ctx, corrID)
	if !ok {
		return
	}

	d, err := h.service.AttachPayload(ctx, draftID, req.Payload, req.AttestationNotes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "payload checkpoint finished",
		"correlation_id", corrID,
		"draft_id", d.ID.String(),
		"status", string(d.Status),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDraft(d, corrID))
}

// HandleSeal handles POST /v1/drafts/{draftID}/seal.
func (h *Handler) HandleSeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := requestcontext.CorrelationID(ctx)

	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Seal(ctx, draftID)
	if err != nil {
		h.logger.WarnContext(ctx, "seal rejected",
			"correlation_id", corrID,
			"draft_id", draftID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "record sealed",
		"correlation_id", corrID,
		"draft_id", draftID.String(),
		"record_id", rec.ID.String(),
		"display_id", rec.DisplayID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec, corrID))
}

// HandleAbandon handles POST /v1/drafts/{draftID}/abandon.
func (h *Handler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Abandon(ctx, draftID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDraft(d, requestcontext.CorrelationID(ctx)))
}

// HandleGetRecord handles GET /v1/records/{recordID}.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.GetRecord(ctx, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, requestcontext.CorrelationID(ctx)))
}

// HandleListRecords handles GET /v1/records.
func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.ListRecords(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecordList(records, requestcontext.CorrelationID(ctx)))
}

func (h *Handler) draftID(w http.ResponseWriter, r *http.Request) (id.DraftID, bool) {
	draftID, err := id.ParseDraftID(chi.URLParam(r, "draftID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DraftID{}, false
	}
	return draftID, true
}
