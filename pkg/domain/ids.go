// Package domain holds shared domain primitives: typed identifiers and closed
// enumerations used across modules. Typed IDs prevent accidental mixups between
// case and user identifiers at compile time.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// CaseID identifies a reimbursement case. Minted once at submission, immutable.
type CaseID uuid.UUID

// NewCaseID mints a fresh case identifier.
func NewCaseID() CaseID {
	return CaseID(uuid.New())
}

// ParseCaseID validates and returns a CaseID from its string form.
func ParseCaseID(s string) (CaseID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return CaseID{}, fmt.Errorf("invalid case id: %w", err)
	}
	if parsed == uuid.Nil {
		return CaseID{}, fmt.Errorf("case id must not be nil")
	}
	return CaseID(parsed), nil
}

func (id CaseID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id CaseID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler so CaseID round-trips through
// JSON as its canonical string form.
func (id CaseID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *CaseID) UnmarshalText(text []byte) error {
	parsed, err := ParseCaseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UserID identifies a user (requester or approver). Approver entries in a
// route may also be role identifiers such as "direct_manager"; those are
// plain strings resolved by the identity layer, so UserID stays a string
// rather than a UUID.
type UserID string

func (id UserID) String() string {
	return string(id)
}

// IsEmpty reports whether the ID carries no value.
func (id UserID) IsEmpty() bool {
	return id == ""
}
