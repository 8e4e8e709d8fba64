// Package handler exposes reporting over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reimbly/internal/reporting"
	"reimbly/pkg/platform/httputil"
)

// Service defines the reporting operations the HTTP layer exposes.
type Service interface {
	Generate(ctx context.Context, period reporting.Period) (reporting.Report, error)
}

// Handler wires reporting endpoints to the reporting service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a reporting handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reporting endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/summary", h.HandleSummary)
}

// HandleSummary handles GET /reports/summary?period=daily|weekly|monthly.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	period := reporting.Period(r.URL.Query().Get("period"))

	report, err := h.service.Generate(r.Context(), period)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
