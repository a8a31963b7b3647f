// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy for sockio. Recoverable conditions are returned as distinct
// kinds the caller can branch on with errors.Is; conditions that only arise
// from descriptor or deadline misuse abort through Fatalf instead of
// surfacing as errors no caller could handle.

package api

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Classification sentinels. Wrap them through Error (or %w) and test with
// errors.Is.
var (
	// ErrRetry marks transient resource exhaustion: descriptor-table or
	// kernel memory pressure, engine watch quotas. Back off and retry the
	// whole higher-level operation.
	ErrRetry = errors.New("transient resource exhaustion")

	// ErrAlreadyReported marks an operational failure whose diagnostic was
	// logged at the point of detection. Propagate without logging again.
	ErrAlreadyReported = errors.New("failure already reported")

	// ErrUnsupported marks input outside the toolkit's capability, such as
	// hostnames or IPv6 text where only dotted-decimal IPv4 is accepted.
	ErrUnsupported = errors.New("unsupported address form")

	// ErrPeerClosed marks zero progress on an unconditional transfer: the
	// peer performed an orderly close before the buffer was complete.
	ErrPeerClosed = errors.New("peer closed connection")

	// ErrWouldBlock marks an accept on a non-blocking listener with no
	// pending connection.
	ErrWouldBlock = errors.New("operation would block")

	// ErrClosedDescriptor marks an operation on a released descriptor where
	// that is a reportable outcome rather than a programming error.
	ErrClosedDescriptor = errors.New("closed or invalid descriptor")
)

// Error couples an operation name with its classification kind and the
// underlying cause. Either Kind or Err may be nil.
type Error struct {
	Op   string
	Kind error
	Err  error
}

// Error renders a single diagnostic line.
func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return e.Op
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRetry reports whether err carries the ErrRetry classification.
func IsRetry(err error) bool { return errors.Is(err, ErrRetry) }

// IsWouldBlock reports whether err carries the ErrWouldBlock classification.
func IsWouldBlock(err error) bool { return errors.Is(err, ErrWouldBlock) }

// RetryableErrno reports whether errno indicates transient resource
// exhaustion: per-process or system descriptor limits, kernel memory, or an
// event-engine watch quota.
func RetryableErrno(errno unix.Errno) bool {
	switch errno {
	case unix.EMFILE, unix.ENFILE, unix.ENOMEM, unix.ENOBUFS, unix.ENOSPC:
		return true
	}
	return false
}

// ErrnoOf extracts the errno from err, unwrapping as needed.
func ErrnoOf(err error) (unix.Errno, bool) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// Fatalf reports a condition the toolkit cannot recover from: the diagnostic
// is logged once and the calling goroutine aborts by panicking. These
// branches guard invariants that only break through descriptor reuse,
// malformed timeouts, or engine misconfiguration; converting them into
// recoverable errors would mask the bug that caused them.
func Fatalf(log Logger, format string, args ...any) {
	if log == nil {
		log = NopLogger
	}
	log.Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
