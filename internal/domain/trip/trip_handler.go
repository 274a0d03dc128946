package trip

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mirageholidays/trip-planner-api/internal/lib/httpjson"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Handler exposes the itinerary view over HTTP.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Itinerary handles GET /v1/trips/{id}/itinerary. Optional query params:
// include (comma-separated upsell ids) and currency (display code).
func (h *Handler) Itinerary(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.BuildItinerary)
}

// Export handles GET /v1/trips/{id}/export: same model, every day expanded.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.BuildExport)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request,
	build func(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*Itinerary, error),
) {
	tripID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpjson.WriteError(w, types.ErrBadRequest)
		return
	}

	includeUpsells, err := parseIncludeParam(r.URL.Query().Get("include"))
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}

	itinerary, err := build(r.Context(), tripID, includeUpsells, r.URL.Query().Get("currency"))
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, itinerary)
}

func parseIncludeParam(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, types.ErrBadRequest
		}
		ids = append(ids, id)
	}
	return ids, nil
}
