// Package notify delivers best-effort notifications on case transitions.
// Delivery failures are logged and never surfaced to the operation that
// triggered them; retry policy belongs to the downstream delivery system.
package notify

import (
	"context"
	"log/slog"

	"reimbly/internal/approval"
)

// LogNotifier writes notifications to the structured log. It is the default
// when no broker is configured, and doubles as the delivery sink in tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event approval.NotifyEvent, c approval.Case) error {
	n.logger.InfoContext(ctx, "case notification",
		"event", string(event),
		"case_id", c.ID,
		"status", string(c.Status),
		"subject", Subject(event, c),
	)
	return nil
}
