// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package pool recycles fixed-size transfer buffers. Full-buffer send and
// receive operate on caller-owned slices; BytePool keeps steady-state
// connection handling allocation-free.
package pool

import "sync"

// BytePool hands out byte slices of one fixed size.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool builds a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.p.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// GetBuffer returns a buffer of the pool's size, zero-length history not
// guaranteed: callers overwrite before use.
func (b *BytePool) GetBuffer() []byte {
	return *(b.p.Get().(*[]byte))
}

// PutBuffer returns buf to the pool. Buffers of a foreign size are dropped
// so a short reslice cannot poison later gets.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	buf = buf[:b.size]
	b.p.Put(&buf)
}

// Size reports the fixed buffer size.
func (b *BytePool) Size() int {
	return b.size
}
