// Package api
// Author: momentics <momentics@gmail.com>
//
// Readiness and timing contracts shared by all sockio packages.

package api

import (
	"math"
	"time"
)

// Interest selects the readiness condition of a descriptor. A single wait
// observes exactly one interest; an event-engine registration may combine
// them with bitwise or.
type Interest uint8

const (
	// Readable is satisfied when a read would make progress.
	Readable Interest = 1 << iota
	// Writable is satisfied when a write would make progress.
	Writable
)

// String returns the interest name for diagnostics.
func (i Interest) String() string {
	switch i {
	case Readable:
		return "readable"
	case Writable:
		return "writable"
	case Readable | Writable:
		return "readable|writable"
	}
	return "unknown"
}

// Forever disables the deadline of a wait or transfer. Any other negative
// timeout is a programming error and aborts via Fatalf.
const Forever time.Duration = -1

// MaxWait is the largest budget a single readiness wait accepts: the
// underlying poll takes a signed 32-bit millisecond timeout. Transfer loops
// split longer deadlines into successive waits bounded by MaxWait.
const MaxWait = time.Duration(math.MaxInt32) * time.Millisecond

// Clock supplies the monotonic timestamps used for deadline accounting.
// Deadline loops capture one start timestamp and re-derive elapsed time from
// the clock; a deadline is never reset mid-operation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system monotonic clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
