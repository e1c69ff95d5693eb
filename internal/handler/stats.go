package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nadab-hotels/orders-api/internal/middleware"
	"github.com/nadab-hotels/orders-api/internal/service"
)

// StatsServicer defines the service methods needed by the stats handler.
// Satisfied by *service.StatsService; narrow interface for testability.
type StatsServicer interface {
	Stats(ctx context.Context, hotelID string) (*service.Stats, error)
}

// StatsHandler handles sales statistics endpoints.
type StatsHandler struct {
	svc StatsServicer
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc StatsServicer) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// RegisterRoutes registers stats endpoints. They require an identity.
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireIdentity).Get("/stats", h.Get)
}

// Get handles GET /stats for the caller's hotel.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), middleware.IdentityID(r.Context()))
	if err != nil {
		writeServiceError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Stats: stats})
}
