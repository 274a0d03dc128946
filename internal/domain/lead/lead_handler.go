package lead

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mirageholidays/trip-planner-api/internal/lib/httpjson"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Handler exposes lead capture over HTTP.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /v1/leads.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateLeadRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}

	l, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, l)
}

// Get handles GET /v1/leads/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpjson.WriteError(w, types.ErrBadRequest)
		return
	}

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, l)
}
