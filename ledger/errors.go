package ledger

import "fmt"

// ValidationError reports a malformed expense or an inconsistent split set.
// The API layer maps it to a 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing expense or group.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " " + e.ID + " not found"
}

// ForbiddenError reports a caller acting on a group they are not an active
// member of.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// DatabaseError wraps any unexpected persistence failure so the original
// cause survives for logging while callers see a single error kind.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

func wrapDB(op string, err error) *DatabaseError {
	return &DatabaseError{Op: op, Err: err}
}
