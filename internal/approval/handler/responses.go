package handler

import (
	"reimbly/internal/approval"
	"reimbly/pkg/domain"
)

// SubmitResponse is returned by POST /cases.
type SubmitResponse struct {
	CaseID      domain.CaseID `json:"case_id"`
	Route       []string      `json:"approval_route"`
	RouteReason string        `json:"route_reason"`
}

// ReviewResponse is returned by POST /cases/{caseID}/reviews.
type ReviewResponse struct {
	Status             approval.Status `json:"status"`
	RemainingApprovers []string        `json:"remaining_approvers,omitempty"`
}

// PendingResponse is returned by GET /approvals/pending.
type PendingResponse struct {
	Pending []approval.Summary `json:"pending"`
}
