// Package routing computes the approval route for a case at submission time.
// Route computation is a pure function of category, amount, and requester
// organization against the static policy table; identical inputs always yield
// an identical route and reason.
package routing

import (
	"fmt"
	"strings"

	"reimbly/pkg/domain"
	dErrors "reimbly/pkg/domain-errors"
)

// Route is the computed approval chain plus the human-readable reason the
// chain was chosen. Approvers holds ordered role identifiers; order is the
// escalation sequence, though approvals themselves are set-membership gated,
// not strictly ordered.
type Route struct {
	Approvers []string
	Reason    string
}

// Router resolves routes against a policy table.
type Router struct {
	table *Table
}

// NewRouter constructs a Router over the given policy table.
func NewRouter(table *Table) *Router {
	return &Router{table: table}
}

// ComputeRoute determines the approval route for a case. Rules apply
// first-match-wins:
//
//  1. Travel strictly above the travel override amount takes the executive
//     chain regardless of tier.
//  2. Requests from the reserved "executive" organization take the executive
//     chain.
//  3. Otherwise the amount selects a tier; a value exactly at a threshold
//     belongs to the lower tier.
//
// Category validity is validated upstream; an unknown category here is a
// precondition violation and fails fast.
func (r *Router) ComputeRoute(category domain.Category, amount float64, organization string) (Route, error) {
	if !category.Valid() {
		return Route{}, dErrors.Newf(dErrors.CodeValidation, "unknown category %q", category)
	}
	if amount <= 0 {
		return Route{}, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}

	if category == domain.CategoryTravel && amount > r.table.TravelExecutiveAbove {
		return Route{
			Approvers: r.chain(TierExecutive),
			Reason:    fmt.Sprintf("high-value travel above %.0f requires executive approval", r.table.TravelExecutiveAbove),
		}, nil
	}

	if strings.EqualFold(organization, OrgExecutive) {
		return Route{
			Approvers: r.chain(TierExecutive),
			Reason:    "executive-org requests require full approval chain",
		}, nil
	}

	tier := r.tierFor(amount)
	return Route{
		Approvers: r.chain(tier),
		Reason:    r.tierReason(tier),
	}, nil
}

func (r *Router) tierFor(amount float64) Tier {
	switch {
	case amount <= r.table.Thresholds.Low:
		return TierLow
	case amount <= r.table.Thresholds.Medium:
		return TierMedium
	case amount <= r.table.Thresholds.High:
		return TierHigh
	default:
		return TierExecutive
	}
}

func (r *Router) tierReason(tier Tier) string {
	switch tier {
	case TierLow:
		return fmt.Sprintf("amount within low tier (up to %.0f): direct manager approval", r.table.Thresholds.Low)
	case TierMedium:
		return fmt.Sprintf("amount within medium tier (up to %.0f): manager and department head approval", r.table.Thresholds.Medium)
	case TierHigh:
		return fmt.Sprintf("amount within high tier (up to %.0f): manager, department head, and finance approval", r.table.Thresholds.High)
	default:
		return fmt.Sprintf("amount above %.0f requires executive approval", r.table.Thresholds.High)
	}
}

// chain returns a copy so callers can never mutate the shared table.
func (r *Router) chain(tier Tier) []string {
	src := r.table.Routes[tier]
	out := make([]string, len(src))
	copy(out, src)
	return out
}
