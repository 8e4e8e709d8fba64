// Package handler wires the approval engine to HTTP. Handlers stay thin:
// decode, call the service, encode; business rules live in the engine.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reimbly/internal/approval"
	"reimbly/pkg/domain"
	dErrors "reimbly/pkg/domain-errors"
	"reimbly/pkg/platform/httputil"
	"reimbly/pkg/requestcontext"
)

// Service defines the engine operations the HTTP layer exposes.
type Service interface {
	Submit(ctx context.Context, draft approval.Draft) (domain.CaseID, approval.Route, error)
	Review(ctx context.Context, caseID domain.CaseID, req approval.DecisionRequest) (approval.ReviewResult, error)
	PendingForApprover(ctx context.Context, approver domain.UserID) ([]approval.Summary, error)
	Get(ctx context.Context, caseID domain.CaseID) (approval.Case, error)
}

// Handler wires approval endpoints to the approval service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an approval handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts approval endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.HandleSubmit)
	r.Get("/cases/{caseID}", h.HandleGet)
	r.Post("/cases/{caseID}/reviews", h.HandleReview)
	r.Get("/approvals/pending", h.HandlePending)
}

// HandleSubmit handles POST /cases.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[SubmitRequest](w, r, h.logger)
	if !ok {
		return
	}

	caseID, route, err := h.service.Submit(ctx, req.Draft(requestcontext.ActorID(ctx)))
	if err != nil {
		h.logger.WarnContext(ctx, "case submission rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case submitted",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", caseID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		CaseID:      caseID,
		Route:       route.Approvers,
		RouteReason: route.Reason,
	})
}

// HandleReview handles POST /cases/{caseID}/reviews.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed case id"))
		return
	}

	actor := requestcontext.ActorID(ctx)
	if actor.IsEmpty() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "caller identity required"))
		return
	}

	req, ok := httputil.Decode[ReviewRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Review(ctx, caseID, req.Decision(actor))
	if err != nil {
		h.logger.WarnContext(ctx, "review rejected",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"actor_id", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "review accepted",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", caseID,
		"actor_id", actor,
		"status", string(result.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ReviewResponse{
		Status:             result.Status,
		RemainingApprovers: result.RemainingApprovers,
	})
}

// HandlePending handles GET /approvals/pending. The approver defaults to the
// authenticated caller; an explicit approver_id query overrides it for
// delegate and admin views.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	approver := domain.UserID(r.URL.Query().Get("approver_id"))
	if approver.IsEmpty() {
		approver = requestcontext.ActorID(ctx)
	}

	summaries, err := h.service.PendingForApprover(ctx, approver)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PendingResponse{Pending: summaries})
}

// HandleGet handles GET /cases/{caseID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caseID, err := domain.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed case id"))
		return
	}

	c, err := h.service.Get(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
