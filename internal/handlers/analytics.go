package handlers

import (
	"net/http"

	"github.com/coursebase/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// AnalyticsHandler exposes aggregate platform statistics.
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// AnalyticsRouter registers analytics routes on the given router.
func AnalyticsRouter(r chi.Router, analyticsService *services.AnalyticsService) {
	handler := NewAnalyticsHandler(analyticsService)
	r.Get("/summary", handler.Summary)
}

func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analyticsService.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
