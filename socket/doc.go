// Package socket
// Author: momentics <momentics@gmail.com>
//
// Stream-socket lifecycle and deadline-bounded full-buffer transfers over
// raw descriptors. A Socket owns exactly one descriptor: ownership passes to
// the caller at creation and the descriptor must be released exactly once,
// via Close or the best-effort ShutdownClose combinator. Transfers alternate
// a readiness wait with one raw I/O call, accumulating progress against a
// wall-clock budget that is captured once and re-checked after every partial
// transfer.
//
// Only dotted-decimal IPv4 endpoints are accepted; there is no name
// resolution and no IPv6. Sockets are single-owner: concurrent use of one
// descriptor requires external synchronization.
package socket
