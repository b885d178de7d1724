package draws

import (
	"errors"
	"fmt"
)

// Kind classifies a draw failure. The string form is what API callers see.
type Kind string

const (
	// KindAlreadyDrawn means the group already has a committed draw.
	KindAlreadyDrawn Kind = "AlreadyDrawn"
	// KindInsufficientMembers means fewer than three active members.
	KindInsufficientMembers Kind = "InsufficientMembers"
	// KindConstraintInfeasible means no assignment satisfying the
	// exclusions was found.
	KindConstraintInfeasible Kind = "ConstraintInfeasible"
	// KindPersistence covers storage and transaction failures.
	KindPersistence Kind = "PersistenceError"
	// KindGroupNotFound means the group id is unknown.
	KindGroupNotFound Kind = "GroupNotFound"
	// KindNotDrawn is returned by reset and lookup on an undrawn group.
	KindNotDrawn Kind = "NotDrawn"
	// KindNoAssignment means the caller is not a giver in the current draw.
	KindNoAssignment Kind = "NoAssignment"
)

// Error is the error type returned by Service. Everything but
// KindPersistence is a business outcome that leaves the group unchanged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrAlreadyDrawn)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrAlreadyDrawn         = &Error{Kind: KindAlreadyDrawn, Message: "this group has already been drawn"}
	ErrInsufficientMembers  = &Error{Kind: KindInsufficientMembers, Message: "need at least 3 members to draw"}
	ErrConstraintInfeasible = &Error{Kind: KindConstraintInfeasible, Message: "no assignment satisfies the group's exclusions; remove some exclusions and try again"}
	ErrGroupNotFound        = &Error{Kind: KindGroupNotFound, Message: "group not found"}
	ErrNotDrawn             = &Error{Kind: KindNotDrawn, Message: "this group has not been drawn yet"}
	ErrNoAssignment         = &Error{Kind: KindNoAssignment, Message: "you are not a giver in this draw"}
)

func persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the kind of err. Errors that are not *Error are reported
// as KindPersistence; nil yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

// IsBusiness reports whether err is a recoverable rule outcome rather than
// an infrastructure failure.
func IsBusiness(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindPersistence
}
