package approval

import (
	"time"

	"reimbly/pkg/domain"
	dErrors "reimbly/pkg/domain-errors"
)

// Record validates a decision request against the case and, on success,
// appends it to the decision log and re-derives the status. The case is
// mutated in place; callers pass a clone when they need attempt isolation.
//
// Preconditions are checked in order, first failure wins:
//  1. case not terminal
//  2. actor present and not the requester
//  3. actor on the route and not already voted
//  4. action is approve or reject
//  5. reject carries a comment
func Record(c *Case, req DecisionRequest, now time.Time) (ReviewResult, error) {
	if c.Status.Terminal() {
		return ReviewResult{}, dErrors.Newf(dErrors.CodeTerminalState,
			"case %s is already %s", c.ID, c.Status)
	}
	if req.ActorID.IsEmpty() {
		return ReviewResult{}, dErrors.New(dErrors.CodeValidation, "actor_id is required")
	}
	if req.ActorID == c.RequesterID {
		return ReviewResult{}, dErrors.New(dErrors.CodeSelfApproval,
			"requesters may not review their own case")
	}
	if !c.OnRoute(req.ActorID) || c.HasDecisionFrom(req.ActorID) {
		return ReviewResult{}, dErrors.Newf(dErrors.CodeUnauthorizedApprover,
			"approver %s is not entitled to decide this case", req.ActorID)
	}
	if !req.Action.Valid() {
		return ReviewResult{}, dErrors.Newf(dErrors.CodeInvalidAction,
			"action must be %q or %q", ActionApprove, ActionReject)
	}
	if req.Action == ActionReject && req.Comments == "" {
		return ReviewResult{}, dErrors.New(dErrors.CodeValidation,
			"rejections require a comment")
	}

	c.DecisionLog = append(c.DecisionLog, Decision{
		ActorID:   req.ActorID,
		Action:    req.Action,
		Timestamp: now,
		Comments:  req.Comments,
	})
	c.Status = DeriveStatus(c.ApprovalRoute, c.DecisionLog)
	c.LastUpdated = now

	result := ReviewResult{Status: c.Status}
	if c.Status == StatusPendingReview {
		result.RemainingApprovers = c.RemainingApprovers()
	}
	return result, nil
}

// DeriveStatus recomputes the case status from the originally computed route
// and the full decision log. It is a pure function: replaying the same log
// against the same route always yields the same status, which is what makes
// the optimistic-retry path safe to re-derive state on every attempt.
func DeriveStatus(route []string, log []Decision) Status {
	approved := make(map[domain.UserID]bool, len(log))
	for _, d := range log {
		if d.Action == ActionReject {
			return StatusRejected
		}
		if d.Action == ActionApprove {
			approved[d.ActorID] = true
		}
	}
	for _, member := range route {
		if !approved[domain.UserID(member)] {
			if len(log) == 0 {
				return StatusSubmitted
			}
			return StatusPendingReview
		}
	}
	return StatusApproved
}
