package approval

import "context"

// NotifyEvent classifies a case transition worth telling someone about.
type NotifyEvent string

const (
	EventSubmitted     NotifyEvent = "submitted"
	EventStepApproved  NotifyEvent = "step_approved"
	EventFullyApproved NotifyEvent = "fully_approved"
	EventRejected      NotifyEvent = "rejected"
)

// Notifier is the fire-and-forget notification port the engine signals after
// durable writes. Implementations must be safe for concurrent use; their
// failures are logged by the engine and never propagated to callers.
type Notifier interface {
	Notify(ctx context.Context, event NotifyEvent, c Case) error
}
