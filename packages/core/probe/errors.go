package probe

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrExecution        = errors.New("command could not be executed")
	ErrTimeout          = errors.New("command timed out")
)

// Error records a failed probe. Kind is one of the sentinel errors above, or
// nil when the failure does not fit any of them.
type Error struct {
	Op      string
	Subject string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// pathError wraps a filesystem error, classifying it as not found or
// permission denied where possible.
func pathError(op, path string, err error) error {
	e := &Error{Op: op, Subject: path, Err: err}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		e.Kind = ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		e.Kind = ErrPermissionDenied
	}
	return e
}
