//go:build linux

// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/sockio/api"
	"github.com/momentics/sockio/stats"
)

const defaultMaxEvents = 128

// Callback handles a readiness notification for one descriptor. The
// interest mask names which of the registered conditions fired.
type Callback func(fd int, interest api.Interest)

type registration struct {
	cb       Callback
	interest api.Interest
}

type readyEvent struct {
	fd       int
	interest api.Interest
}

// Engine is an epoll-backed api.Eventer[Callback]. Wait dispatches callbacks
// on the calling goroutine; the engine itself schedules nothing.
type Engine struct {
	epfd      int
	maxEvents int
	events    []unix.EpollEvent
	pending   *queue.Queue

	mu            sync.Mutex
	registrations map[int]registration

	log api.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger routes the engine's diagnostics to l.
func WithLogger(l api.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New builds an Engine; call Init (directly or through an eventer.Adapter)
// before using it.
func New(opts ...Option) *Engine {
	e := &Engine{epfd: -1, log: api.NopLogger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Init creates the epoll instance. Descriptor-table exhaustion surfaces as
// the raw errno for the adapter to classify; initializing twice is a
// programming error.
func (e *Engine) Init(cfg api.EventerConfig) error {
	if e.epfd >= 0 {
		api.Fatalf(e.log, "reactor: engine already initialized (epfd %d)", e.epfd)
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	e.epfd = epfd
	e.maxEvents = cfg.MaxEvents
	if e.maxEvents <= 0 {
		e.maxEvents = defaultMaxEvents
	}
	e.events = make([]unix.EpollEvent, e.maxEvents)
	e.pending = queue.New()
	e.registrations = make(map[int]registration)
	return nil
}

// Add registers fd for interest. Errors surface raw: the watch-quota errno
// is retryable, duplicates and invalid descriptors are for the adapter to
// treat as fatal.
func (e *Engine) Add(fd int, interest api.Interest, cb Callback) error {
	e.ensureInit("add")
	var ev unix.EpollEvent
	if interest&api.Readable != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if interest&api.Writable != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	ev.Fd = int32(fd)
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	e.mu.Lock()
	e.registrations[fd] = registration{cb: cb, interest: interest}
	e.mu.Unlock()
	stats.RecordRegistration(+1)
	return nil
}

// Del removes fd from the interest set. Events already staged for fd are
// discarded at dispatch time.
func (e *Engine) Del(fd int) error {
	e.ensureInit("del")
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.registrations, fd)
	e.mu.Unlock()
	stats.RecordRegistration(-1)
	return nil
}

// Wait blocks up to timeout for readiness events and dispatches the
// registered callbacks, returning how many were invoked. A negative timeout
// blocks until at least one event arrives. An interrupted wait reports zero
// events; callers loop.
func (e *Engine) Wait(timeout time.Duration) (int, error) {
	e.ensureInit("wait")
	ms := -1
	if timeout >= 0 {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.EpollWait(e.epfd, e.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	// Stage first, then drain: callbacks may Add or Del registrations
	// without disturbing the batch.
	for i := 0; i < n; i++ {
		ev := e.events[i]
		e.pending.Add(readyEvent{fd: int(ev.Fd), interest: e.firedInterest(int(ev.Fd), ev.Events)})
	}
	handled := 0
	for e.pending.Length() > 0 {
		re := e.pending.Remove().(readyEvent)
		e.mu.Lock()
		reg, ok := e.registrations[re.fd]
		e.mu.Unlock()
		if !ok {
			continue
		}
		reg.cb(re.fd, re.interest)
		handled++
	}
	stats.RecordReactorEvents(handled)
	return handled, nil
}

// firedInterest folds epoll flags back into the interest mask. Error and
// hangup conditions report the descriptor's registered interests so the
// callback's next raw transfer surfaces the actual condition.
func (e *Engine) firedInterest(fd int, events uint32) api.Interest {
	var fired api.Interest
	if events&unix.EPOLLIN != 0 {
		fired |= api.Readable
	}
	if events&unix.EPOLLOUT != 0 {
		fired |= api.Writable
	}
	if fired == 0 {
		e.mu.Lock()
		reg, ok := e.registrations[fd]
		e.mu.Unlock()
		if ok {
			fired = reg.interest
		}
	}
	return fired
}

// Close releases the epoll descriptor.
func (e *Engine) Close() error {
	if e.epfd < 0 {
		return nil
	}
	epfd := e.epfd
	e.epfd = -1
	return unix.Close(epfd)
}

func (e *Engine) ensureInit(op string) {
	if e.epfd < 0 {
		api.Fatalf(e.log, "reactor: %s on an uninitialized engine", op)
	}
}
