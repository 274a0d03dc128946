package planner

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mirageholidays/trip-planner-api/internal/lib/httpjson"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Handler exposes the wizard session API.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type createSessionRequest struct {
	LeadID uuid.UUID `json:"lead_id"`
}

type jumpRequest struct {
	Step int `json:"step"`
}

// CreateSession handles POST /v1/planner/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	if req.LeadID == uuid.Nil {
		httpjson.WriteError(w, types.ErrValidation)
		return
	}

	snap, err := h.svc.CreateSession(r.Context(), req.LeadID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, snap)
}

// GetSession handles GET /v1/planner/sessions/{id} (also the status poll).
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.svc.GetSession)
}

// UpdateInput handles PATCH /v1/planner/sessions/{id}/input.
func (h *Handler) UpdateInput(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var update InputUpdate
	if err := httpjson.Decode(r, &update); err != nil {
		httpjson.WriteError(w, err)
		return
	}

	snap, err := h.svc.UpdateInput(r.Context(), id, update)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, snap)
}

// Continue handles POST /v1/planner/sessions/{id}/continue.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.svc.Continue)
}

// Back handles POST /v1/planner/sessions/{id}/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.svc.Back)
}

// Jump handles POST /v1/planner/sessions/{id}/jump.
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req jumpRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}

	snap, err := h.svc.Jump(r.Context(), id, req.Step)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, snap)
}

// Generate handles POST /v1/planner/sessions/{id}/generate. Returns 202;
// the client polls GetSession for the outcome.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Generate(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, snap)
}

// Retry handles POST /v1/planner/sessions/{id}/retry.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Retry(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, snap)
}

// DismissCombo handles POST /v1/planner/sessions/{id}/dismiss-combo.
func (h *Handler) DismissCombo(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.svc.DismissCombo)
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, sessionID uuid.UUID) (Snapshot, error),
) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := fn(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, snap)
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpjson.WriteError(w, types.ErrBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
