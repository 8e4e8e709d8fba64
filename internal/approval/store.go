package approval

import (
	"context"

	"reimbly/pkg/domain"
)

// Version is the optimistic-concurrency token a store hands out on Load and
// checks on Save.
type Version int64

// Store persists cases with compare-and-swap semantics. Implementations
// return pkg/platform/sentinel errors for infrastructure facts
// (sentinel.ErrNotFound, sentinel.ErrVersionConflict, sentinel.ErrTimeout,
// sentinel.ErrUnavailable);
// the engine translates them into domain errors.
type Store interface {
	// Create persists a brand-new case. The returned version seeds the
	// first conditional write.
	Create(ctx context.Context, c Case) (Version, error)

	// Load returns the case and the version to condition the next Save on.
	Load(ctx context.Context, id domain.CaseID) (Case, Version, error)

	// Save overwrites the case iff the stored version still equals
	// expected, returning the new version. A lost race yields
	// sentinel.ErrVersionConflict.
	Save(ctx context.Context, c Case, expected Version) (Version, error)

	// QueryByApprover returns non-terminal cases whose remaining-approver
	// set contains the given approver. Point-in-time snapshot; callers
	// tolerate eventual consistency with concurrent reviews.
	QueryByApprover(ctx context.Context, approver domain.UserID) ([]Case, error)

	// List returns all cases. Used by reporting; not on the review hot
	// path.
	List(ctx context.Context) ([]Case, error)
}
