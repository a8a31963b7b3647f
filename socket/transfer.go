//go:build linux

// File: socket/transfer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Full-buffer transfer loops. Each cycle is one readiness wait followed by
// one raw transfer; progress accumulates until the buffer is complete, the
// peer stops making progress, or the wall-clock budget runs out.

package socket

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockio/api"
)

// maxWait bounds one readiness wait inside a transfer loop. Budgets above it
// are split into successive waits, each sub-wait's consumed time deducted by
// re-deriving elapsed time from the clock before the next one is issued.
// Tests shrink this to drive the split with short deadlines.
var maxWait = api.MaxWait

// Send performs one raw non-blocking transmit, reporting how much of p was
// queued. api.ErrWouldBlock means no send-buffer space was available.
func (s *Socket) Send(p []byte) (int, error) {
	n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, &api.Error{Op: "send", Kind: api.ErrWouldBlock, Err: err}
		}
		return 0, &api.Error{Op: "send", Err: err}
	}
	return n, nil
}

// Recv performs one raw non-blocking receive. A zero count with nil error is
// the peer's orderly close.
func (s *Socket) Recv(p []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.fd, p, unix.MSG_DONTWAIT)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, &api.Error{Op: "recv", Kind: api.ErrWouldBlock, Err: err}
		}
		return 0, &api.Error{Op: "recv", Err: err}
	}
	return n, nil
}

// SendFull writes all of p, waiting without deadline before each raw
// transmit. Zero transmit progress reports api.ErrPeerClosed carrying the
// count already sent; raw failures propagate unretried.
func (s *Socket) SendFull(p []byte) error {
	sent, complete, err := s.sendLoop(p, api.Forever)
	if err != nil {
		return err
	}
	if !complete {
		return &api.Error{
			Op:   "send",
			Kind: api.ErrPeerClosed,
			Err:  fmt.Errorf("%d of %d bytes sent", sent, len(p)),
		}
	}
	return nil
}

// RecvFull fills p completely, waiting without deadline before each raw
// receive. An orderly close before the buffer is complete reports
// api.ErrPeerClosed together with the filled prefix length; under an
// infinite deadline the distinct kind is what separates early termination
// from success.
func (s *Socket) RecvFull(p []byte) (int, error) {
	received, complete, err := s.recvLoop(p, api.Forever)
	if err != nil {
		return received, err
	}
	if !complete {
		return received, &api.Error{
			Op:   "recv",
			Kind: api.ErrPeerClosed,
			Err:  fmt.Errorf("%d of %d bytes received", received, len(p)),
		}
	}
	return received, nil
}

// SendFullTimeout writes as much of p as the budget d allows. complete is
// true iff the whole buffer was sent before the deadline; otherwise the
// caller inspects n for the transmitted prefix. Peer closure and deadline
// expiry are results, not errors; raw failures propagate unretried.
// d is api.Forever or non-negative.
func (s *Socket) SendFullTimeout(p []byte, d time.Duration) (n int, complete bool, err error) {
	s.checkBudget("send", d)
	return s.sendLoop(p, d)
}

// RecvFullTimeout fills p within the budget d, under the same contract as
// SendFullTimeout.
func (s *Socket) RecvFullTimeout(p []byte, d time.Duration) (n int, complete bool, err error) {
	s.checkBudget("recv", d)
	return s.recvLoop(p, d)
}

func (s *Socket) checkBudget(op string, d time.Duration) {
	if d != api.Forever && d < 0 {
		api.Fatalf(s.log, "%s: negative deadline %v on fd %d", op, d, s.fd)
	}
}

// recvLoop alternates one readiness wait with one raw receive until the
// buffer is full, the peer closes, or the budget is exhausted. The start
// timestamp is captured once; elapsed time is re-derived from the clock
// after every sub-wait and every partial receive, so a peer trickling data
// cannot re-arm the deadline indefinitely.
func (s *Socket) recvLoop(p []byte, budget time.Duration) (int, bool, error) {
	var start time.Time
	if budget != api.Forever {
		start = s.clock.Now()
	}
	received := 0
	for received < len(p) {
		wait := api.Forever
		if budget != api.Forever {
			elapsed := s.clock.Now().Sub(start)
			if elapsed >= budget {
				return received, false, nil
			}
			wait = budget - elapsed
			if wait > maxWait {
				wait = maxWait
			}
		}
		ready, err := s.waiter.Wait(s.fd, api.Readable, wait)
		if err != nil {
			return received, false, err
		}
		if !ready {
			// Sub-wait consumed without an event; the loop head decides
			// whether budget remains.
			continue
		}
		n, _, err := unix.Recvfrom(s.fd, p[received:], unix.MSG_DONTWAIT)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return received, false, &api.Error{Op: "recv", Err: err}
		}
		if n == 0 {
			return received, false, nil
		}
		received += n
	}
	return received, true, nil
}

// sendLoop is the transmit counterpart of recvLoop.
func (s *Socket) sendLoop(p []byte, budget time.Duration) (int, bool, error) {
	var start time.Time
	if budget != api.Forever {
		start = s.clock.Now()
	}
	sent := 0
	for sent < len(p) {
		wait := api.Forever
		if budget != api.Forever {
			elapsed := s.clock.Now().Sub(start)
			if elapsed >= budget {
				return sent, false, nil
			}
			wait = budget - elapsed
			if wait > maxWait {
				wait = maxWait
			}
		}
		ready, err := s.waiter.Wait(s.fd, api.Writable, wait)
		if err != nil {
			return sent, false, err
		}
		if !ready {
			continue
		}
		n, err := unix.SendmsgN(s.fd, p[sent:], nil, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return sent, false, &api.Error{Op: "send", Err: err}
		}
		if n == 0 {
			return sent, false, nil
		}
		sent += n
	}
	return sent, true, nil
}
