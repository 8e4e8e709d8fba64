package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimbly/internal/approval"
	"reimbly/pkg/domain"
	dErrors "reimbly/pkg/domain-errors"
	"reimbly/pkg/requestcontext"
)

type fakeService struct {
	submitDraft   approval.Draft
	submitID      domain.CaseID
	submitRoute   approval.Route
	submitErr     error
	reviewCaseID  domain.CaseID
	reviewReq     approval.DecisionRequest
	reviewResult  approval.ReviewResult
	reviewErr     error
	pendingActor  domain.UserID
	pendingResult []approval.Summary
	pendingErr    error
	getResult     approval.Case
	getErr        error
}

func (f *fakeService) Submit(_ context.Context, draft approval.Draft) (domain.CaseID, approval.Route, error) {
	f.submitDraft = draft
	return f.submitID, f.submitRoute, f.submitErr
}

func (f *fakeService) Review(_ context.Context, caseID domain.CaseID, req approval.DecisionRequest) (approval.ReviewResult, error) {
	f.reviewCaseID = caseID
	f.reviewReq = req
	return f.reviewResult, f.reviewErr
}

func (f *fakeService) PendingForApprover(_ context.Context, approver domain.UserID) ([]approval.Summary, error) {
	f.pendingActor = approver
	return f.pendingResult, f.pendingErr
}

func (f *fakeService) Get(_ context.Context, _ domain.CaseID) (approval.Case, error) {
	return f.getResult, f.getErr
}

func newTestRouter(service *fakeService) chi.Router {
	r := chi.NewRouter()
	New(service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any, actor domain.UserID) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if !actor.IsEmpty() {
		req = req.WithContext(requestcontext.WithActorID(req.Context(), actor))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleSubmit(t *testing.T) {
	t.Run("created with route in the response", func(t *testing.T) {
		service := &fakeService{
			submitID:    domain.NewCaseID(),
			submitRoute: approval.Route{Approvers: []string{"direct_manager"}, Reason: "low tier"},
		}
		router := newTestRouter(service)

		rec := doJSON(t, router, http.MethodPost, "/cases", map[string]any{
			"organization":  "engineering",
			"category":      "meals",
			"amount":        42.5,
			"currency":      "usd",
			"justification": "team lunch with candidates",
			"attachments":   []map[string]string{{"type": "receipt", "name": "lunch.pdf"}},
		}, "alice")

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SubmitResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, service.submitID, resp.CaseID)
		assert.Equal(t, []string{"direct_manager"}, resp.Route)
		assert.Equal(t, "low tier", resp.RouteReason)

		// Normalization and actor fallback happen at the wire boundary.
		assert.Equal(t, domain.UserID("alice"), service.submitDraft.RequesterID)
		assert.Equal(t, domain.CategoryMeals, service.submitDraft.Category)
		assert.Equal(t, domain.CurrencyUSD, service.submitDraft.Currency)
	})

	t.Run("unknown body fields are rejected", func(t *testing.T) {
		router := newTestRouter(&fakeService{})

		rec := doJSON(t, router, http.MethodPost, "/cases", map[string]any{"surprise": true}, "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "validation_error")
	})

	t.Run("engine errors map to their status", func(t *testing.T) {
		service := &fakeService{submitErr: dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")}
		router := newTestRouter(service)

		rec := doJSON(t, router, http.MethodPost, "/cases", map[string]any{"amount": -5}, "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "amount must be greater than zero")
	})
}

func TestHandleReview(t *testing.T) {
	caseID := domain.NewCaseID()

	t.Run("requires caller identity", func(t *testing.T) {
		router := newTestRouter(&fakeService{})

		rec := doJSON(t, router, http.MethodPost, "/cases/"+caseID.String()+"/reviews",
			map[string]any{"action": "approve"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "caller identity required")
	})

	t.Run("malformed case id", func(t *testing.T) {
		router := newTestRouter(&fakeService{})

		rec := doJSON(t, router, http.MethodPost, "/cases/not-a-uuid/reviews",
			map[string]any{"action": "approve"}, "finance")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("actor comes from context, action is normalized", func(t *testing.T) {
		service := &fakeService{
			reviewResult: approval.ReviewResult{
				Status:             approval.StatusPendingReview,
				RemainingApprovers: []string{"executive"},
			},
		}
		router := newTestRouter(service)

		rec := doJSON(t, router, http.MethodPost, "/cases/"+caseID.String()+"/reviews",
			map[string]any{"action": " Approve ", "comment": "looks fine"}, "finance")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, caseID, service.reviewCaseID)
		assert.Equal(t, domain.UserID("finance"), service.reviewReq.ActorID)
		assert.Equal(t, approval.ActionApprove, service.reviewReq.Action)

		var resp ReviewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, approval.StatusPendingReview, resp.Status)
		assert.Equal(t, []string{"executive"}, resp.RemainingApprovers)
	})

	t.Run("error codes map to statuses", func(t *testing.T) {
		tests := []struct {
			code dErrors.Code
			want int
		}{
			{dErrors.CodeSelfApproval, http.StatusForbidden},
			{dErrors.CodeUnauthorizedApprover, http.StatusForbidden},
			{dErrors.CodeTerminalState, http.StatusConflict},
			{dErrors.CodeConcurrency, http.StatusConflict},
			{dErrors.CodeNotFound, http.StatusNotFound},
			{dErrors.CodeStoreTimeout, http.StatusGatewayTimeout},
		}
		for _, tt := range tests {
			service := &fakeService{reviewErr: dErrors.New(tt.code, "nope")}
			router := newTestRouter(service)

			rec := doJSON(t, router, http.MethodPost, "/cases/"+caseID.String()+"/reviews",
				map[string]any{"action": "approve"}, "finance")
			assert.Equal(t, tt.want, rec.Code, "code %s", tt.code)
		}
	})
}

func TestHandlePending(t *testing.T) {
	summary := approval.Summary{
		ID:                 domain.NewCaseID(),
		RequesterID:        "alice",
		Category:           domain.CategoryMeals,
		Amount:             60,
		Currency:           domain.CurrencyUSD,
		Status:             approval.StatusSubmitted,
		RemainingApprovers: []string{"direct_manager"},
	}

	t.Run("defaults to the authenticated caller", func(t *testing.T) {
		service := &fakeService{pendingResult: []approval.Summary{summary}}
		router := newTestRouter(service)

		rec := doJSON(t, router, http.MethodGet, "/approvals/pending", nil, "direct_manager")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.UserID("direct_manager"), service.pendingActor)

		var resp PendingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Pending, 1)
		assert.Equal(t, summary.ID, resp.Pending[0].ID)
	})

	t.Run("query parameter overrides the caller", func(t *testing.T) {
		service := &fakeService{}
		router := newTestRouter(service)

		rec := doJSON(t, router, http.MethodGet, "/approvals/pending?approver_id=finance", nil, "direct_manager")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.UserID("finance"), service.pendingActor)
	})
}

func TestHandleGet(t *testing.T) {
	t.Run("returns the full case", func(t *testing.T) {
		c := approval.Case{ID: domain.NewCaseID(), RequesterID: "alice", Status: approval.StatusSubmitted}
		router := newTestRouter(&fakeService{getResult: c})

		rec := doJSON(t, router, http.MethodGet, "/cases/"+c.ID.String(), nil, "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got approval.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		router := newTestRouter(&fakeService{getErr: dErrors.New(dErrors.CodeNotFound, "case not found")})

		rec := doJSON(t, router, http.MethodGet, "/cases/"+domain.NewCaseID().String(), nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
