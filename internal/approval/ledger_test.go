package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimbly/pkg/domain"
	dErrors "reimbly/pkg/domain-errors"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newLedgerCase() Case {
	return Case{
		ID:            domain.NewCaseID(),
		RequesterID:   "alice",
		Organization:  "engineering",
		Category:      domain.CategoryTravel,
		Amount:        3200,
		Currency:      domain.CurrencyUSD,
		Justification: "conference travel to Berlin",
		Attachments:   []Attachment{{Type: "receipt", Name: "flight.pdf"}},
		ApprovalRoute: []string{"direct_manager", "department_head", "finance", "executive"},
		DecisionLog:   []Decision{},
		Status:        StatusSubmitted,
		SubmittedAt:   testNow,
		LastUpdated:   testNow,
	}
}

func TestRecordApprovalFlow(t *testing.T) {
	c := newLedgerCase()

	result, err := Record(&c, DecisionRequest{ActorID: "direct_manager", Action: ActionApprove}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingReview, result.Status)
	assert.Equal(t, []string{"department_head", "finance", "executive"}, result.RemainingApprovers)
	assert.Len(t, c.DecisionLog, 1)
	assert.Equal(t, testNow, c.LastUpdated)

	for _, actor := range []domain.UserID{"department_head", "finance"} {
		result, err = Record(&c, DecisionRequest{ActorID: actor, Action: ActionApprove}, testNow)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingReview, result.Status)
	}

	result, err = Record(&c, DecisionRequest{ActorID: "executive", Action: ActionApprove}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, result.Status)
	assert.Empty(t, result.RemainingApprovers)
	assert.Len(t, c.DecisionLog, 4)
}

func TestRecordRejectionIsTerminal(t *testing.T) {
	c := newLedgerCase()

	result, err := Record(&c, DecisionRequest{
		ActorID:  "finance",
		Action:   ActionReject,
		Comments: "no itinerary attached",
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, result.Status)
	assert.Empty(t, result.RemainingApprovers)

	// Any further decision, even from a route member who has not voted,
	// must bounce off the terminal state without touching the log.
	_, err = Record(&c, DecisionRequest{ActorID: "executive", Action: ActionApprove}, testNow)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeTerminalState, dErrors.CodeOf(err))
	assert.Len(t, c.DecisionLog, 1)
}

func TestRecordPreconditions(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(c *Case)
		req      DecisionRequest
		wantCode dErrors.Code
	}{
		{
			name:     "missing actor",
			req:      DecisionRequest{Action: ActionApprove},
			wantCode: dErrors.CodeValidation,
		},
		{
			name:     "requester may not self approve",
			req:      DecisionRequest{ActorID: "alice", Action: ActionApprove},
			wantCode: dErrors.CodeSelfApproval,
		},
		{
			name:     "actor off the route",
			req:      DecisionRequest{ActorID: "mallory", Action: ActionApprove},
			wantCode: dErrors.CodeUnauthorizedApprover,
		},
		{
			name: "actor already voted",
			prepare: func(c *Case) {
				_, err := Record(c, DecisionRequest{ActorID: "finance", Action: ActionApprove}, testNow)
				require.NoError(t, err)
			},
			req:      DecisionRequest{ActorID: "finance", Action: ActionApprove},
			wantCode: dErrors.CodeUnauthorizedApprover,
		},
		{
			name:     "unknown action",
			req:      DecisionRequest{ActorID: "finance", Action: "defer"},
			wantCode: dErrors.CodeInvalidAction,
		},
		{
			name:     "rejection without comment",
			req:      DecisionRequest{ActorID: "finance", Action: ActionReject},
			wantCode: dErrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newLedgerCase()
			if tt.prepare != nil {
				tt.prepare(&c)
			}
			before := len(c.DecisionLog)

			_, err := Record(&c, tt.req, testNow)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, dErrors.CodeOf(err))
			assert.Len(t, c.DecisionLog, before, "failed decision must not touch the log")
		})
	}
}

func TestRecordSelfApprovalWinsOverRouteMembership(t *testing.T) {
	// A requester placed on their own route is still barred from voting.
	c := newLedgerCase()
	c.ApprovalRoute = append(c.ApprovalRoute, "alice")

	_, err := Record(&c, DecisionRequest{ActorID: "alice", Action: ActionApprove}, testNow)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeSelfApproval, dErrors.CodeOf(err))
}

func TestDeriveStatus(t *testing.T) {
	route := []string{"direct_manager", "finance"}

	tests := []struct {
		name string
		log  []Decision
		want Status
	}{
		{
			name: "empty log is submitted",
			log:  nil,
			want: StatusSubmitted,
		},
		{
			name: "partial approvals pend",
			log:  []Decision{{ActorID: "direct_manager", Action: ActionApprove}},
			want: StatusPendingReview,
		},
		{
			name: "all route members approved",
			log: []Decision{
				{ActorID: "direct_manager", Action: ActionApprove},
				{ActorID: "finance", Action: ActionApprove},
			},
			want: StatusApproved,
		},
		{
			name: "any rejection wins",
			log: []Decision{
				{ActorID: "direct_manager", Action: ActionApprove},
				{ActorID: "finance", Action: ActionReject, Comments: "over budget"},
			},
			want: StatusRejected,
		},
		{
			name: "off-route approvals do not complete the case",
			log: []Decision{
				{ActorID: "direct_manager", Action: ActionApprove},
				{ActorID: "someone_else", Action: ActionApprove},
			},
			want: StatusPendingReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(route, tt.log)
			assert.Equal(t, tt.want, got)
			// Replaying the same log must yield the same status.
			assert.Equal(t, got, DeriveStatus(route, tt.log))
		})
	}
}

func TestRemainingApproversPreservesRouteOrder(t *testing.T) {
	c := newLedgerCase()

	_, err := Record(&c, DecisionRequest{ActorID: "finance", Action: ActionApprove}, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"direct_manager", "department_head", "executive"}, c.RemainingApprovers())
}

func TestCloneIsolatesMutations(t *testing.T) {
	c := newLedgerCase()
	clone := c.Clone()

	_, err := Record(&clone, DecisionRequest{ActorID: "finance", Action: ActionApprove}, testNow)
	require.NoError(t, err)

	assert.Empty(t, c.DecisionLog)
	assert.Equal(t, StatusSubmitted, c.Status)
	assert.Len(t, clone.DecisionLog, 1)
}
