package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound is returned by ProjectStore.Load for unknown projects.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectExists is returned by ProjectStore.Create when the name is taken.
	ErrProjectExists = errors.New("project already exists")

	// ErrInvalidConfig marks configuration problems (bad rate, date, timezone)
	// detected before any I/O is performed. Wrap it with context via %w.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// PublishError is returned by Publisher implementations when a submission
// fails. Transient errors are eligible for an operator-initiated re-run;
// permanent errors need operator correction before the item can succeed.
type PublishError struct {
	Transient bool
	Msg       string
	Err       error
}

func (e *PublishError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("publish failed (%s): %s: %v", kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("publish failed (%s): %s", kind, e.Msg)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsTransientPublishError reports whether err is a PublishError marked transient.
func IsTransientPublishError(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe) && pe.Transient
}
