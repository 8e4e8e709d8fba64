package approval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reimbly/internal/approval/metrics"
	"reimbly/internal/routing"
	"reimbly/pkg/domain"
	dErrors "reimbly/pkg/domain-errors"
	"reimbly/pkg/platform/sentinel"
	pstrings "reimbly/pkg/platform/strings"
	"reimbly/pkg/requestcontext"
)

// DefaultRetryBudget bounds the optimistic-concurrency retry loop in Review.
const DefaultRetryBudget = 5

const minJustificationLen = 10

// Service is the approval engine: it composes the policy router, the review
// ledger, and the case store into the three operations callers use. All
// methods are safe for concurrent use; the persisted case record is the only
// shared mutable state and every write is a conditional (versioned) write.
type Service struct {
	store       Store
	router      *routing.Router
	table       *routing.Table
	notifier    Notifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	retryBudget int
}

// Option configures the Service.
type Option func(*Service)

// WithNotifier sets the notification sink. Without one, transitions are not
// announced.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRetryBudget overrides the bounded retry count for optimistic writes.
func WithRetryBudget(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryBudget = n
		}
	}
}

// NewService constructs the approval engine.
func NewService(store Store, router *routing.Router, table *routing.Table, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		router:      router,
		table:       table,
		logger:      logger,
		tracer:      otel.Tracer("reimbly/approval"),
		retryBudget: DefaultRetryBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates a draft, computes its approval route, and persists the new
// case. A fresh case ID is always minted; submission is not deduplicated by
// content.
func (s *Service) Submit(ctx context.Context, draft Draft) (domain.CaseID, Route, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "approval.Submit",
		trace.WithAttributes(attribute.String("category", string(draft.Category))))
	defer span.End()
	defer func() { s.metrics.ObserveOperation("submit", time.Since(start)) }()

	if err := s.validateDraft(draft); err != nil {
		span.RecordError(err)
		return domain.CaseID{}, Route{}, err
	}

	computed, err := s.router.ComputeRoute(draft.Category, draft.Amount, draft.Organization)
	if err != nil {
		span.RecordError(err)
		return domain.CaseID{}, Route{}, err
	}

	now := requestcontext.Now(ctx)
	c := Case{
		ID:            domain.NewCaseID(),
		RequesterID:   draft.RequesterID,
		Organization:  draft.Organization,
		Category:      draft.Category,
		Amount:        draft.Amount,
		Currency:      draft.Currency,
		Justification: draft.Justification,
		Attachments:   append([]Attachment(nil), draft.Attachments...),
		ApprovalRoute: computed.Approvers,
		RouteReason:   computed.Reason,
		DecisionLog:   []Decision{},
		Status:        StatusSubmitted,
		SubmittedAt:   now,
		LastUpdated:   now,
	}

	if _, err := s.store.Create(ctx, c); err != nil {
		span.RecordError(err)
		return domain.CaseID{}, Route{}, storeError("create case", err)
	}

	s.metrics.IncSubmission(string(c.Category))
	s.logger.InfoContext(ctx, "case submitted",
		"case_id", c.ID,
		"requester_id", c.RequesterID,
		"category", string(c.Category),
		"amount", c.Amount,
		"route", c.ApprovalRoute,
		"route_reason", c.RouteReason,
	)
	s.announce(ctx, EventSubmitted, c)

	return c.ID, Route{Approvers: c.ApprovalRoute, Reason: c.RouteReason}, nil
}

// Route mirrors the router output on the engine's API so transport layers do
// not import the routing package.
type Route struct {
	Approvers []string
	Reason    string
}

// Review records one approver's decision. Concurrent reviews of the same case
// are serialized by optimistic concurrency: each attempt loads the latest
// case, re-validates against the latest log, and performs a single atomic
// conditional write. A lost race retries the whole cycle from scratch so the
// already-voted and terminal-state checks always see fresh state; after the
// retry budget it surfaces a concurrency error.
func (s *Service) Review(ctx context.Context, caseID domain.CaseID, req DecisionRequest) (ReviewResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "approval.Review",
		trace.WithAttributes(
			attribute.String("case_id", caseID.String()),
			attribute.String("action", string(req.Action)),
		))
	defer span.End()
	defer func() { s.metrics.ObserveOperation("review", time.Since(start)) }()

	for attempt := 1; attempt <= s.retryBudget; attempt++ {
		current, version, err := s.store.Load(ctx, caseID)
		if err != nil {
			span.RecordError(err)
			return ReviewResult{}, storeError("load case", err)
		}

		working := current.Clone()
		result, err := Record(&working, req, requestcontext.Now(ctx))
		if err != nil {
			span.RecordError(err)
			return ReviewResult{}, err
		}

		if _, err := s.store.Save(ctx, working, version); err != nil {
			if errors.Is(err, sentinel.ErrVersionConflict) {
				s.metrics.IncReviewRetry()
				s.logger.DebugContext(ctx, "review lost optimistic write, retrying",
					"case_id", caseID,
					"actor_id", req.ActorID,
					"attempt", attempt,
				)
				continue
			}
			span.RecordError(err)
			return ReviewResult{}, storeError("save case", err)
		}

		s.metrics.IncReviewOutcome(string(result.Status))
		s.logger.InfoContext(ctx, "review recorded",
			"case_id", caseID,
			"actor_id", req.ActorID,
			"action", string(req.Action),
			"status", string(result.Status),
			"attempts", attempt,
		)
		s.announce(ctx, reviewEvent(result.Status), working)
		return result, nil
	}

	err := dErrors.Newf(dErrors.CodeConcurrency,
		"review of case %s did not settle within %d attempts", caseID, s.retryBudget)
	span.RecordError(err)
	return ReviewResult{}, err
}

// PendingForApprover returns summaries of every non-terminal case still
// waiting on the given approver. The result is a point-in-time snapshot;
// concurrent reviews may land between query and use.
func (s *Service) PendingForApprover(ctx context.Context, approver domain.UserID) ([]Summary, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "approval.PendingForApprover")
	defer span.End()
	defer func() { s.metrics.ObserveOperation("pending_for_approver", time.Since(start)) }()

	if approver.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "approver_id is required")
	}

	cases, err := s.store.QueryByApprover(ctx, approver)
	if err != nil {
		span.RecordError(err)
		return nil, storeError("query by approver", err)
	}

	summaries := make([]Summary, 0, len(cases))
	for _, c := range cases {
		if c.Status.Terminal() {
			continue
		}
		if !contains(c.RemainingApprovers(), string(approver)) {
			continue
		}
		summaries = append(summaries, c.Summarize())
	}
	return summaries, nil
}

// Get loads a single case.
func (s *Service) Get(ctx context.Context, caseID domain.CaseID) (Case, error) {
	c, _, err := s.store.Load(ctx, caseID)
	if err != nil {
		return Case{}, storeError("load case", err)
	}
	return c, nil
}

func (s *Service) validateDraft(draft Draft) error {
	if draft.RequesterID.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "requester_id is required")
	}
	if !draft.Category.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown category %q", draft.Category)
	}
	if !draft.Currency.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unsupported currency %q", draft.Currency)
	}
	if draft.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	if len(strings.TrimSpace(draft.Justification)) < minJustificationLen {
		return dErrors.Newf(dErrors.CodeValidation,
			"justification must be at least %d characters", minJustificationLen)
	}
	if len(draft.Attachments) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one attachment is required")
	}

	if limit, capped := s.table.Limit(draft.Category); capped && draft.Amount > limit {
		return dErrors.Newf(dErrors.CodeValidation,
			"amount %.2f exceeds the %s limit of %.2f", draft.Amount, draft.Category, limit)
	}

	types := make([]string, 0, len(draft.Attachments))
	for _, att := range draft.Attachments {
		types = append(types, att.Type)
	}
	have := pstrings.DedupeAndTrimLower(types)
	for _, required := range s.table.RequiredTypes(draft.Category) {
		if !contains(have, strings.ToLower(required)) {
			return dErrors.Newf(dErrors.CodeValidation,
				"%s submissions require a %q attachment", draft.Category, required)
		}
	}
	return nil
}

// announce fires a notification after a durable write. Failures are logged
// and dropped: notification delivery never fails the business operation and
// is never retried here.
func (s *Service) announce(ctx context.Context, event NotifyEvent, c Case) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, c); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			"event", string(event),
			"case_id", c.ID,
			"error", err,
		)
	}
}

func reviewEvent(status Status) NotifyEvent {
	switch status {
	case StatusApproved:
		return EventFullyApproved
	case StatusRejected:
		return EventRejected
	default:
		return EventStepApproved
	}
}

// storeError translates infrastructure sentinels into the domain taxonomy.
// Adapter failures other than not-found and timeout propagate as store errors
// without local retries; retry policy is the adapter's concern.
func storeError(operation string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(dErrors.CodeNotFound, "case not found", err)
	case errors.Is(err, sentinel.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(dErrors.CodeStoreTimeout, operation+" timed out", err)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(dErrors.CodeStore, operation+" store unavailable", err)
	default:
		return dErrors.Wrap(dErrors.CodeStore, operation+" failed", err)
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
