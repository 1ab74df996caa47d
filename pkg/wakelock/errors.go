package wakelock

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned when the current OS or environment cannot
	// provide a display wake lock (wrong OS, no reachable inhibitor service).
	// It is wrapped with detail; test for it with errors.Is.
	ErrUnsupported = errors.New("wake lock unsupported")

	// ErrAlreadyReleased is returned by Release on a guard whose native
	// resource is already gone.
	ErrAlreadyReleased = errors.New("wake lock already released")
)

// PlatformError reports that an OS or session-service call was attempted and
// failed. Code carries the native status (Win32 error, IOReturn); it is zero
// for D-Bus failures, where Message holds the D-Bus error name instead.
type PlatformError struct {
	Op      string
	Code    int64
	Message string
	Err     error
}

func (e *PlatformError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s failed (code=%d): %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

func unsupported(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, a...))
}
