package notify

import (
	"context"
	"log/slog"

	"reimbly/internal/approval"
	"reimbly/pkg/platform/circuit"
)

// ResilientNotifier guards a primary delivery channel with a circuit breaker.
// Failed deliveries fall back to the secondary channel; the breaker tracks
// consecutive outcomes so open/close transitions are logged exactly once.
type ResilientNotifier struct {
	primary  approval.Notifier
	fallback approval.Notifier
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewResilientNotifier wraps primary with a breaker. fallback is typically a
// LogNotifier so transitions remain observable even with the broker down.
func NewResilientNotifier(primary, fallback approval.Notifier, breaker *circuit.Breaker, logger *slog.Logger) *ResilientNotifier {
	return &ResilientNotifier{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (n *ResilientNotifier) Notify(ctx context.Context, event approval.NotifyEvent, c approval.Case) error {
	err := n.primary.Notify(ctx, event, c)
	if err == nil {
		if _, change := n.breaker.RecordSuccess(); change.Closed {
			n.logger.InfoContext(ctx, "notification circuit closed",
				"breaker", n.breaker.Name())
		}
		return nil
	}

	if _, change := n.breaker.RecordFailure(); change.Opened {
		n.logger.WarnContext(ctx, "notification circuit opened",
			"breaker", n.breaker.Name(),
			"error", err,
		)
	}
	return n.fallback.Notify(ctx, event, c)
}
