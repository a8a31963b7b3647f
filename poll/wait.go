//go:build linux

// File: poll/wait.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package poll

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockio/api"
)

// Waiter performs readiness waits with a fixed logger and clock. The zero
// configuration discards diagnostics and reads the system clock; transfer
// loops construct one Waiter and reuse it for every wait.
type Waiter struct {
	log   api.Logger
	clock api.Clock
}

// Option customizes a Waiter.
type Option func(*Waiter)

// WithLogger routes fatal diagnostics to l.
func WithLogger(l api.Logger) Option {
	return func(w *Waiter) {
		if l != nil {
			w.log = l
		}
	}
}

// WithClock substitutes the timestamp source used for deadline accounting.
func WithClock(c api.Clock) Option {
	return func(w *Waiter) {
		if c != nil {
			w.clock = c
		}
	}
}

// NewWaiter builds a Waiter.
func NewWaiter(opts ...Option) *Waiter {
	w := &Waiter{log: api.NopLogger, clock: api.SystemClock{}}
	for _, o := range opts {
		o(w)
	}
	return w
}

var defaultWaiter = Waiter{log: api.NopLogger, clock: api.SystemClock{}}

// Wait blocks until fd satisfies interest or timeout elapses, using the
// package default Waiter.
func Wait(fd int, interest api.Interest, timeout time.Duration) (bool, error) {
	return defaultWaiter.Wait(fd, interest, timeout)
}

// WaitReadable blocks until fd is readable or timeout elapses.
func WaitReadable(fd int, timeout time.Duration) (bool, error) {
	return defaultWaiter.Wait(fd, api.Readable, timeout)
}

// WaitWritable blocks until fd is writable or timeout elapses.
func WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return defaultWaiter.Wait(fd, api.Writable, timeout)
}

// WaitReadable blocks until fd is readable or timeout elapses.
func (w *Waiter) WaitReadable(fd int, timeout time.Duration) (bool, error) {
	return w.Wait(fd, api.Readable, timeout)
}

// WaitWritable blocks until fd is writable or timeout elapses.
func (w *Waiter) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return w.Wait(fd, api.Writable, timeout)
}

// Wait blocks the calling goroutine until fd satisfies interest, returning
// true, or until a finite timeout elapses with no event, returning false.
//
// timeout is api.Forever or a duration in [0, api.MaxWait]; splitting longer
// deadlines across several waits is the transfer layer's job. A negative
// non-Forever timeout, a timeout beyond MaxWait, and an unknown interest are
// programming errors and abort. ENOMEM from poll(2) classifies as
// api.ErrRetry; an interrupted wait re-arms with the remaining budget
// re-derived from the clock, so the deadline is never reset.
func (w *Waiter) Wait(fd int, interest api.Interest, timeout time.Duration) (bool, error) {
	if timeout != api.Forever && timeout < 0 {
		api.Fatalf(w.log, "poll: negative timeout %v waiting on fd %d", timeout, fd)
	}
	if timeout > api.MaxWait {
		api.Fatalf(w.log, "poll: timeout %v exceeds the single-wait ceiling %v", timeout, api.MaxWait)
	}

	var events int16
	switch interest {
	case api.Readable:
		events = unix.POLLIN
	case api.Writable:
		events = unix.POLLOUT
	default:
		api.Fatalf(w.log, "poll: wait on fd %d takes one interest, got %s", fd, interest)
	}

	var deadline time.Time
	if timeout != api.Forever {
		deadline = w.clock.Now().Add(timeout)
	}

	for {
		ms := -1
		if timeout != api.Forever {
			remaining := deadline.Sub(w.clock.Now())
			if remaining < 0 {
				remaining = 0
			}
			// Round up so the wait never wakes before the requested budget.
			ms = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}

		fds := [1]unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds[:], ms)
		if err != nil {
			switch err {
			case unix.EINTR:
				continue
			case unix.ENOMEM:
				return false, &api.Error{Op: "poll", Kind: api.ErrRetry, Err: err}
			}
			api.Fatalf(w.log, "poll: wait on fd %d: %v", fd, err)
		}

		switch n {
		case 0:
			if timeout == api.Forever {
				api.Fatalf(w.log, "poll: infinite wait on fd %d reported no ready descriptor", fd)
			}
			return false, nil
		case 1:
			if fds[0].Revents&unix.POLLNVAL != 0 {
				api.Fatalf(w.log, "poll: fd %d is not an open descriptor", fd)
			}
			// POLLERR/POLLHUP count as ready: the next raw transfer call
			// surfaces the actual condition.
			return true, nil
		}
		api.Fatalf(w.log, "poll: one-descriptor wait on fd %d reported %d ready", fd, n)
	}
}
