package notify

import (
	"fmt"
	"strings"

	"reimbly/internal/approval"
	"reimbly/pkg/email"
)

// Subject renders the notification subject line for an event.
func Subject(event approval.NotifyEvent, c approval.Case) string {
	switch event {
	case approval.EventSubmitted:
		return fmt.Sprintf("Reimbursement Request Submitted - %s", c.ID)
	case approval.EventStepApproved:
		return fmt.Sprintf("Reimbursement Request Update - %s", c.ID)
	case approval.EventFullyApproved, approval.EventRejected:
		return fmt.Sprintf("Reimbursement Request Completed - %s", c.ID)
	default:
		return fmt.Sprintf("Reimbursement Request - %s", c.ID)
	}
}

// Body renders the plain-text notification body, including an approval
// progress bar while the case is still moving through its route.
func Body(event approval.NotifyEvent, c approval.Case) string {
	var b strings.Builder
	first, _ := email.DeriveNameFromEmail(string(c.RequesterID))
	fmt.Fprintf(&b, "Dear %s,\n\n", first)
	fmt.Fprintf(&b, "Request ID: %s\n", c.ID)
	fmt.Fprintf(&b, "Category: %s\n", c.Category)
	fmt.Fprintf(&b, "Amount: %.2f %s\n", c.Amount, c.Currency)
	fmt.Fprintf(&b, "Status: %s\n", c.Status)

	if !c.Status.Terminal() {
		fmt.Fprintf(&b, "\nProgress:\n%s\n", ProgressBar(c))
	}
	if event == approval.EventRejected {
		if reason := rejectionComment(c); reason != "" {
			fmt.Fprintf(&b, "\nRejection reason: %s\n", reason)
		}
	}
	return b.String()
}

// ProgressBar renders approval progress as a fixed-width ASCII bar, e.g.
// "[#####-----] 2/4 approvals".
func ProgressBar(c approval.Case) string {
	total := len(c.ApprovalRoute)
	if total == 0 {
		return ""
	}
	done := total - len(c.RemainingApprovers())

	const width = 10
	filled := done * width / total
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("[%s] %d/%d approvals", bar, done, total)
}

func rejectionComment(c approval.Case) string {
	for _, d := range c.DecisionLog {
		if d.Action == approval.ActionReject {
			return d.Comments
		}
	}
	return ""
}
