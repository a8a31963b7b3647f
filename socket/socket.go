//go:build linux

// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Descriptor lifecycle: listening sockets, outbound connections, accept,
// shutdown and release, and the pending-error query used after an
// asynchronous connect.

package socket

import (
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockio/api"
	"github.com/momentics/sockio/poll"
)

// listenBacklog is the fixed depth of the pending-connection queue.
const listenBacklog = 8

// Socket owns one stream descriptor.
type Socket struct {
	fd     int
	log    api.Logger
	clock  api.Clock
	waiter *poll.Waiter
}

// Option customizes socket construction.
type Option func(*Socket)

// WithLogger routes the socket's diagnostics to l.
func WithLogger(l api.Logger) Option {
	return func(s *Socket) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock substitutes the timestamp source for deadline accounting.
func WithClock(c api.Clock) Option {
	return func(s *Socket) {
		if c != nil {
			s.clock = c
		}
	}
}

func newSocket(fd int, opts ...Option) *Socket {
	s := &Socket{fd: fd, log: api.NopLogger, clock: api.SystemClock{}}
	for _, o := range opts {
		o(s)
	}
	s.waiter = poll.NewWaiter(poll.WithLogger(s.log), poll.WithClock(s.clock))
	return s
}

// Wrap adopts an existing stream descriptor. Ownership transfers to the
// returned Socket; the caller must not close fd itself afterwards.
func Wrap(fd int, opts ...Option) *Socket {
	return newSocket(fd, opts...)
}

// Fd returns the descriptor for registration with an event engine. The
// Socket retains ownership.
func (s *Socket) Fd() int { return s.fd }

// Listen creates a listening socket on an IPv4 endpoint: non-blocking
// stream socket, address reuse, bind, and a fixed-backlog listen. Bind and
// listen failures are logged here with the causing error and returned as
// api.ErrAlreadyReported so upstream layers do not duplicate the
// diagnostic. The descriptor never leaks: every failure past creation
// closes it before returning.
func Listen(addr netip.AddrPort, opts ...Option) (*Socket, error) {
	if !addr.Addr().Is4() {
		return nil, &api.Error{Op: "listen", Kind: api.ErrUnsupported}
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, classifyCreate("listen", err)
	}
	s := newSocket(fd, opts...)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		api.Fatalf(s.log, "listen %s: setsockopt SO_REUSEADDR on fresh fd %d: %v", addr, fd, err)
	}
	if err := unix.Bind(fd, sockaddrInet4(addr)); err != nil {
		s.log.Errorf("bind %s failed: %v", addr, err)
		unix.Close(fd)
		return nil, &api.Error{Op: "bind", Kind: api.ErrAlreadyReported, Err: err}
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		s.log.Errorf("listen %s failed: %v", addr, err)
		unix.Close(fd)
		return nil, &api.Error{Op: "listen", Kind: api.ErrAlreadyReported, Err: err}
	}
	return s, nil
}

// Connect opens a synchronous outbound connection to an IPv4 endpoint. On
// connect failure the partially created descriptor is closed before the
// error propagates.
func Connect(addr netip.AddrPort, opts ...Option) (*Socket, error) {
	if !addr.Addr().Is4() {
		return nil, &api.Error{Op: "connect", Kind: api.ErrUnsupported}
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, classifyCreate("connect", err)
	}
	s := newSocket(fd, opts...)
	if err := unix.Connect(fd, sockaddrInet4(addr)); err != nil {
		unix.Close(fd)
		return nil, &api.Error{Op: "connect", Err: err}
	}
	return s, nil
}

// Accept takes the next pending connection from a listening socket. The
// accepted socket is non-blocking and inherits the listener's logger and
// clock. With nothing pending it reports api.ErrWouldBlock; descriptor or
// memory exhaustion reports api.ErrRetry; connections aborted by the peer
// before accept are skipped.
func (s *Socket) Accept() (*Socket, error) {
	for {
		nfd, _, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == nil {
			return &Socket{fd: nfd, log: s.log, clock: s.clock, waiter: s.waiter}, nil
		}
		switch err {
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return nil, &api.Error{Op: "accept", Kind: api.ErrWouldBlock, Err: err}
		}
		if errno, ok := api.ErrnoOf(err); ok && api.RetryableErrno(errno) {
			return nil, &api.Error{Op: "accept", Kind: api.ErrRetry, Err: err}
		}
		return nil, &api.Error{Op: "accept", Err: err}
	}
}

// Shutdown performs a bidirectional shutdown. A peer or prior shutdown
// having already torn the connection down is an idempotent success; a
// released descriptor and resource exhaustion are distinct reported
// failures; anything else cannot occur on a descriptor used correctly and
// aborts.
func (s *Socket) Shutdown() error {
	err := unix.Shutdown(s.fd, unix.SHUT_RDWR)
	if err == nil || err == unix.ENOTCONN {
		return nil
	}
	if errno, ok := api.ErrnoOf(err); ok {
		switch {
		case errno == unix.EBADF:
			return &api.Error{Op: "shutdown", Kind: api.ErrClosedDescriptor, Err: err}
		case api.RetryableErrno(errno):
			return &api.Error{Op: "shutdown", Kind: api.ErrRetry, Err: err}
		}
	}
	api.Fatalf(s.log, "shutdown fd %d: unexpected failure: %v", s.fd, err)
	return nil
}

// Close releases the descriptor. The Socket must not be used afterwards.
func (s *Socket) Close() error {
	fd := s.fd
	s.fd = -1
	if fd < 0 {
		return &api.Error{Op: "close", Kind: api.ErrClosedDescriptor}
	}
	if err := unix.Close(fd); err != nil {
		return &api.Error{Op: "close", Err: err}
	}
	return nil
}

// ShutdownClose ends the connection regardless of shutdown outcome: the
// shutdown error is discarded and the descriptor is unconditionally
// released. This is the standard cleanup path once a connection is known to
// be ending; it never propagates an error.
func (s *Socket) ShutdownClose() {
	if s.fd >= 0 {
		_ = unix.Shutdown(s.fd, unix.SHUT_RDWR)
	}
	_ = s.Close()
}

// PendingError drains the descriptor's pending error slot, set by an
// asynchronous connect failure on a non-blocking socket. The query itself
// failing means the descriptor was misused, so it aborts rather than
// returning an error.
func (s *Socket) PendingError() error {
	code, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		api.Fatalf(s.log, "getsockopt SO_ERROR on fd %d: %v", s.fd, err)
	}
	if code == 0 {
		return nil
	}
	return unix.Errno(code)
}

// LocalAddr reports the bound endpoint. Descriptors outside the IPv4 family
// (accepted from elsewhere and wrapped) report api.ErrUnsupported.
func (s *Socket) LocalAddr() (netip.AddrPort, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		api.Fatalf(s.log, "getsockname on fd %d: %v", s.fd, err)
	}
	return addrPortOf(sa)
}

// RemoteAddr reports the connected peer's endpoint.
func (s *Socket) RemoteAddr() (netip.AddrPort, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return netip.AddrPort{}, &api.Error{Op: "peer address", Err: err}
	}
	return addrPortOf(sa)
}

func addrPortOf(sa unix.Sockaddr) (netip.AddrPort, error) {
	inet4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return netip.AddrPort{}, &api.Error{Op: "socket address", Kind: api.ErrUnsupported}
	}
	return netip.AddrPortFrom(netip.AddrFrom4(inet4.Addr), uint16(inet4.Port)), nil
}

func sockaddrInet4(addr netip.AddrPort) *unix.SockaddrInet4 {
	sa := &unix.SockaddrInet4{Port: int(addr.Port())}
	sa.Addr = addr.Addr().As4()
	return sa
}

func classifyCreate(op string, err error) error {
	if errno, ok := api.ErrnoOf(err); ok && api.RetryableErrno(errno) {
		return &api.Error{Op: op, Kind: api.ErrRetry, Err: err}
	}
	return &api.Error{Op: op, Err: err}
}
