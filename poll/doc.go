// Package poll
// Author: momentics <momentics@gmail.com>
//
// Single-descriptor readiness waits over poll(2). A wait blocks the calling
// goroutine until the descriptor satisfies one interest or a finite timeout
// elapses; an infinite wait cannot time out by contract, and a poll result
// inconsistent with a one-descriptor set aborts instead of returning an
// error, since it indicates corrupted bookkeeping rather than an
// operational condition.
package poll
