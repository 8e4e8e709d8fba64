package handler

import (
	"strings"

	"reimbly/internal/approval"
	"reimbly/pkg/domain"
)

// SubmitRequest is the wire shape for POST /cases.
type SubmitRequest struct {
	RequesterID   string                `json:"requester_id"`
	Organization  string                `json:"organization"`
	Category      string                `json:"category"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	Justification string                `json:"justification"`
	Attachments   []approval.Attachment `json:"attachments"`
}

// Draft converts the wire request into the engine's input. The fallback actor
// is used when the body does not name a requester, so authenticated callers
// submit for themselves by default.
func (r SubmitRequest) Draft(fallback domain.UserID) approval.Draft {
	requester := domain.UserID(strings.TrimSpace(r.RequesterID))
	if requester.IsEmpty() {
		requester = fallback
	}
	return approval.Draft{
		RequesterID:   requester,
		Organization:  strings.TrimSpace(r.Organization),
		Category:      domain.Category(strings.ToLower(strings.TrimSpace(r.Category))),
		Amount:        r.Amount,
		Currency:      domain.Currency(strings.ToUpper(strings.TrimSpace(r.Currency))),
		Justification: strings.TrimSpace(r.Justification),
		Attachments:   r.Attachments,
	}
}

// ReviewRequest is the wire shape for POST /cases/{caseID}/reviews. The actor
// comes from the request context, never the body.
type ReviewRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// Decision converts the wire request into the ledger's input.
func (r ReviewRequest) Decision(actor domain.UserID) approval.DecisionRequest {
	return approval.DecisionRequest{
		ActorID:  actor,
		Action:   approval.Action(strings.ToLower(strings.TrimSpace(r.Action))),
		Comments: strings.TrimSpace(r.Comment),
	}
}
