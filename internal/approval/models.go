// Package approval implements the reimbursement approval engine: the review
// ledger attached to each case and the orchestration that advances cases
// through their approval route safely under concurrent review submissions.
package approval

import (
	"time"

	"reimbly/pkg/domain"
)

// Status is the derived lifecycle state of a case. It is recomputed from the
// route and decision log on every mutation, never set independently except at
// creation.
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// Terminal reports whether the status accepts no further decisions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Action is a review verb.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Valid reports whether the action is a member of the closed set.
func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// Attachment is a supporting document reference. Storage and retrieval of the
// document itself is an external concern; cases only hold pointers.
type Attachment struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Decision is one approver's immutable ledger entry. Entries are only ever
// appended, never edited or removed.
type Decision struct {
	ActorID   domain.UserID `json:"actor_id"`
	Action    Action        `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	Comments  string        `json:"comments"`
}

// Case is the unit of work: one reimbursement request moving through
// approval. ApprovalRoute is immutable after computation; progress is derived
// by subtracting recorded approvals from it rather than mutating it, so the
// audit trail survives.
type Case struct {
	ID           domain.CaseID `json:"case_id"`
	RequesterID  domain.UserID `json:"requester_id"`
	Organization string        `json:"organization"`

	Category      domain.Category `json:"category"`
	Amount        float64         `json:"amount"`
	Currency      domain.Currency `json:"currency"`
	Justification string          `json:"justification"`
	Attachments   []Attachment    `json:"attachments"`

	ApprovalRoute []string   `json:"approval_route"`
	RouteReason   string     `json:"route_reason"`
	DecisionLog   []Decision `json:"decision_log"`

	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Clone returns a deep copy. The review path mutates a clone per optimistic
// attempt so a failed conditional write never leaves a half-updated case
// behind.
func (c Case) Clone() Case {
	out := c
	out.Attachments = append([]Attachment(nil), c.Attachments...)
	out.ApprovalRoute = append([]string(nil), c.ApprovalRoute...)
	out.DecisionLog = append([]Decision(nil), c.DecisionLog...)
	return out
}

// RemainingApprovers derives the route members who have not yet recorded an
// approval, preserving route order.
func (c Case) RemainingApprovers() []string {
	approved := make(map[domain.UserID]bool, len(c.DecisionLog))
	for _, d := range c.DecisionLog {
		if d.Action == ActionApprove {
			approved[d.ActorID] = true
		}
	}
	remaining := make([]string, 0, len(c.ApprovalRoute))
	for _, member := range c.ApprovalRoute {
		if !approved[domain.UserID(member)] {
			remaining = append(remaining, member)
		}
	}
	return remaining
}

// HasDecisionFrom reports whether the actor already appears in the ledger.
func (c Case) HasDecisionFrom(actor domain.UserID) bool {
	for _, d := range c.DecisionLog {
		if d.ActorID == actor {
			return true
		}
	}
	return false
}

// OnRoute reports whether the actor is a member of the approval route.
func (c Case) OnRoute(actor domain.UserID) bool {
	for _, member := range c.ApprovalRoute {
		if domain.UserID(member) == actor {
			return true
		}
	}
	return false
}

// Summary is the read-model row returned by pending-approver queries.
type Summary struct {
	ID                 domain.CaseID   `json:"case_id"`
	RequesterID        domain.UserID   `json:"requester_id"`
	Category           domain.Category `json:"category"`
	Amount             float64         `json:"amount"`
	Currency           domain.Currency `json:"currency"`
	Status             Status          `json:"status"`
	RemainingApprovers []string        `json:"remaining_approvers"`
	SubmittedAt        time.Time       `json:"submitted_at"`
}

// Summarize projects a case onto its summary row.
func (c Case) Summarize() Summary {
	return Summary{
		ID:                 c.ID,
		RequesterID:        c.RequesterID,
		Category:           c.Category,
		Amount:             c.Amount,
		Currency:           c.Currency,
		Status:             c.Status,
		RemainingApprovers: c.RemainingApprovers(),
		SubmittedAt:        c.SubmittedAt,
	}
}

// Draft is the submission input before a case exists. Validation happens in
// the engine; the draft itself is inert data.
type Draft struct {
	RequesterID   domain.UserID   `json:"requester_id"`
	Organization  string          `json:"organization"`
	Category      domain.Category `json:"category"`
	Amount        float64         `json:"amount"`
	Currency      domain.Currency `json:"currency"`
	Justification string          `json:"justification"`
	Attachments   []Attachment    `json:"attachments"`
}

// DecisionRequest is one approver's review submission.
type DecisionRequest struct {
	ActorID  domain.UserID
	Action   Action
	Comments string
}

// ReviewResult reports the derived state after a decision landed.
type ReviewResult struct {
	Status             Status
	RemainingApprovers []string
}
