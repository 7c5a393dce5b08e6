package moderation

import (
	"errors"
	"fmt"

	"modkeeper/internal/models"
)

// ErrExpiresNotFuture is returned when a requested expiration is not strictly
// after the creation time.
var ErrExpiresNotFuture = errors.New("expiration must be in the future")

// ConflictError reports an attempt to create a restriction while an active
// record of the same kind already covers the target.
type ConflictError struct {
	Kind       models.Kind
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an active %s already exists for that user (case ID: %s)", e.Kind.Noun(), e.ExistingID)
}

// NotFoundError reports a reference to a record id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no restriction found with case ID %s", e.ID)
}

// AlreadyLiftedError reports a lift attempt on a record that has already been
// lifted. It is informational; the record is unchanged.
type AlreadyLiftedError struct {
	ID string
}

func (e *AlreadyLiftedError) Error() string {
	return fmt.Sprintf("restriction %s has already been lifted", e.ID)
}

// WrongKindError reports a case id that exists but belongs to a different
// restriction kind than the operation works on. Nothing is lifted.
type WrongKindError struct {
	ID   string
	Want models.Kind
	Got  models.Kind
}

func (e *WrongKindError) Error() string {
	return fmt.Sprintf("case %s is a %s, not a %s", e.ID, e.Got.Noun(), e.Want.Noun())
}

// TargetRejectedError reports an ineligible moderation target.
type TargetRejectedError struct {
	Message string
}

func (e *TargetRejectedError) Error() string {
	return e.Message
}

// GatewayError wraps a non-retryable failure of a platform enforcement call.
// The restriction record is persisted before the call, so the audit trail
// survives even when the side effect did not confirm.
type GatewayError struct {
	Stage    string // "apply" or "lift"
	CaseID   string
	Kind     models.Kind
	TargetID int64
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed for %s case %s (target %d): %v",
		e.Stage, e.Kind, e.CaseID, e.TargetID, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
