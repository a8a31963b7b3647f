// Package reactor
// Author: momentics <momentics@gmail.com>
//
// Epoll-backed event-notification engine. It satisfies api.Eventer with a
// per-descriptor callback, so it plugs into the eventer adapter, and it is
// the engine behind examples/echo. Ready events are
// staged into a FIFO before dispatch: a callback may add or delete
// registrations without invalidating the batch being drained.
package reactor
