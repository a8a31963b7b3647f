//go:build linux

package socket_test

import (
	"errors"
	"net/netip"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockio/api"
	"github.com/momentics/sockio/fake"
	"github.com/momentics/sockio/poll"
	"github.com/momentics/sockio/socket"
)

func countOpenFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Fatalf("reading /proc/self/fd: %v", err)
	}
	return len(entries)
}

func listenLoopback(t *testing.T, opts ...socket.Option) *socket.Socket {
	t.Helper()
	ln, err := socket.Listen(netip.MustParseAddrPort("127.0.0.1:0"), opts...)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

// dialPair returns a connected client/server socket pair over loopback.
func dialPair(t *testing.T) (client, server *socket.Socket) {
	t.Helper()
	ln := listenLoopback(t)
	addr, err := ln.LocalAddr()
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}
	client, err = socket.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if ready, err := poll.WaitReadable(ln.Fd(), 2*time.Second); err != nil || !ready {
		t.Fatalf("listener never became readable: ready=%v err=%v", ready, err)
	}
	server, err = ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return client, server
}

func TestListenConnectAcceptRoundtrip(t *testing.T) {
	client, server := dialPair(t)

	if err := client.SendFull([]byte("ping")); err != nil {
		t.Fatalf("client send: %v", err)
	}
	buf := make([]byte, 4)
	if n, err := server.RecvFull(buf); err != nil || n != 4 {
		t.Fatalf("server recv: n=%d err=%v", n, err)
	}
	if string(buf) != "ping" {
		t.Fatalf("server received %q", buf)
	}

	if err := server.SendFull([]byte("pong")); err != nil {
		t.Fatalf("server send: %v", err)
	}
	if n, err := client.RecvFull(buf); err != nil || n != 4 {
		t.Fatalf("client recv: n=%d err=%v", n, err)
	}
	if string(buf) != "pong" {
		t.Fatalf("client received %q", buf)
	}
}

func TestLocalAddrReportsEphemeralPort(t *testing.T) {
	ln := listenLoopback(t)
	addr, err := ln.LocalAddr()
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}
	if addr.Port() == 0 {
		t.Error("ephemeral port not resolved")
	}
	if addr.Addr() != netip.MustParseAddr("127.0.0.1") {
		t.Errorf("bound to %v, want 127.0.0.1", addr.Addr())
	}
}

func TestListenAddrInUseIsReportedOnce(t *testing.T) {
	ln := listenLoopback(t)
	addr, err := ln.LocalAddr()
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}

	log := &fake.CaptureLogger{}
	before := countOpenFDs(t)
	_, err = socket.Listen(addr, socket.WithLogger(log))
	after := countOpenFDs(t)

	if !errors.Is(err, api.ErrAlreadyReported) {
		t.Fatalf("got %v, want ErrAlreadyReported", err)
	}
	lines := log.Errors()
	if len(lines) != 1 || !strings.Contains(lines[0], "bind") {
		t.Errorf("bind diagnostic not logged exactly once: %v", lines)
	}
	if after != before {
		t.Errorf("descriptor leaked: %d open before, %d after", before, after)
	}
}

func TestListenRejectsNonIPv4(t *testing.T) {
	_, err := socket.Listen(netip.MustParseAddrPort("[::1]:0"))
	if !errors.Is(err, api.ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
	_, err = socket.Connect(netip.MustParseAddrPort("[::1]:9"))
	if !errors.Is(err, api.ErrUnsupported) {
		t.Fatalf("connect: got %v, want ErrUnsupported", err)
	}
}

func TestAcceptWouldBlock(t *testing.T) {
	ln := listenLoopback(t)
	_, err := ln.Accept()
	if !api.IsWouldBlock(err) {
		t.Fatalf("got %v, want ErrWouldBlock", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	client, server := dialPair(t)

	if err := server.Shutdown(); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := server.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	// The peer of a shut-down connection also shuts down cleanly.
	if err := client.Shutdown(); err != nil {
		t.Fatalf("peer shutdown: %v", err)
	}
}

func TestShutdownAfterCloseReportsClosedDescriptor(t *testing.T) {
	client, _ := dialPair(t)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Shutdown(); !errors.Is(err, api.ErrClosedDescriptor) {
		t.Fatalf("got %v, want ErrClosedDescriptor", err)
	}
}

func TestCloseTwice(t *testing.T) {
	client, _ := dialPair(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := client.Close(); !errors.Is(err, api.ErrClosedDescriptor) {
		t.Fatalf("second close: got %v, want ErrClosedDescriptor", err)
	}
}

func TestShutdownCloseReleasesDescriptor(t *testing.T) {
	ln := listenLoopback(t)
	addr, _ := ln.LocalAddr()
	before := countOpenFDs(t)
	conn, err := socket.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.ShutdownClose()
	if after := countOpenFDs(t); after != before {
		t.Errorf("descriptor not released: %d open before, %d after", before, after)
	}
	// Releasing again must not disturb other descriptors.
	conn.ShutdownClose()
}

func TestConnectRefusedLeaksNoDescriptor(t *testing.T) {
	ln := listenLoopback(t)
	addr, _ := ln.LocalAddr()
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}

	before := countOpenFDs(t)
	_, err := socket.Connect(addr)
	after := countOpenFDs(t)
	if err == nil {
		t.Fatal("connect to a dead port succeeded")
	}
	if !errors.Is(err, unix.ECONNREFUSED) {
		t.Fatalf("got %v, want ECONNREFUSED", err)
	}
	if after != before {
		t.Errorf("descriptor leaked: %d open before, %d after", before, after)
	}
}

func TestPendingErrorNilOnHealthySocket(t *testing.T) {
	client, _ := dialPair(t)
	if err := client.PendingError(); err != nil {
		t.Fatalf("pending error on healthy socket: %v", err)
	}
}

func TestPendingErrorAfterAsyncConnectRefused(t *testing.T) {
	ln := listenLoopback(t)
	addr, _ := ln.LocalAddr()
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	conn := socket.Wrap(fd)
	t.Cleanup(func() { conn.Close() })

	sa := &unix.SockaddrInet4{Port: int(addr.Port())}
	sa.Addr = addr.Addr().As4()
	switch err = unix.Connect(fd, sa); err {
	case unix.EINPROGRESS:
	case nil, unix.ECONNREFUSED:
		t.Skip("loopback connect resolved synchronously")
	default:
		t.Fatalf("connect: got %v, want EINPROGRESS", err)
	}

	if ready, err := poll.WaitWritable(fd, 2*time.Second); err != nil || !ready {
		t.Fatalf("connect never resolved: ready=%v err=%v", ready, err)
	}
	if err := conn.PendingError(); !errors.Is(err, unix.ECONNREFUSED) {
		t.Fatalf("pending error: got %v, want ECONNREFUSED", err)
	}
	// The slot drains on read: a second query reports no pending failure.
	if err := conn.PendingError(); err != nil {
		t.Errorf("second query: got %v, want nil", err)
	}
}

func TestRemoteAddrMatchesListener(t *testing.T) {
	ln := listenLoopback(t)
	addr, _ := ln.LocalAddr()
	client, err := socket.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	peer, err := client.RemoteAddr()
	if err != nil {
		t.Fatalf("remote addr: %v", err)
	}
	if peer != addr {
		t.Errorf("peer %v, want %v", peer, addr)
	}
}

func TestAcceptedSocketIsUsable(t *testing.T) {
	client, server := dialPair(t)
	if server.Fd() < 0 {
		t.Fatal("accepted socket has no descriptor")
	}
	if err := server.SendFull([]byte("hello")); err != nil {
		t.Fatalf("send on accepted socket: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := client.RecvFull(buf); err != nil {
		t.Fatalf("recv: %v", err)
	}
}
