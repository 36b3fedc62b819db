// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package pool provides reusable fixed-size byte buffers for datagram
// processing.
package pool

import (
	"sync"
	"sync/atomic"
)

// BufferPool hands out fixed-size byte buffers, recycling them through a
// sync.Pool to keep per-datagram allocation off the hot path.
type BufferPool struct {
	size int
	pool sync.Pool

	gets   atomic.Int64
	puts   atomic.Int64
	allocs atomic.Int64
}

// New creates a buffer pool whose buffers are size bytes long.
func New(size int) *BufferPool {
	p := &BufferPool{size: size}
	p.pool.New = func() interface{} {
		p.allocs.Add(1)
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Size returns the length of the buffers this pool hands out.
func (p *BufferPool) Size() int {
	return p.size
}

// Get returns a buffer of the pool's size. The contents are unspecified.
func (p *BufferPool) Get() *[]byte {
	p.gets.Add(1)
	return p.pool.Get().(*[]byte)
}

// Put returns a buffer obtained from Get. Buffers of the wrong size are
// dropped rather than recycled.
func (p *BufferPool) Put(buf *[]byte) {
	if buf == nil || len(*buf) != p.size {
		return
	}
	p.puts.Add(1)
	p.pool.Put(buf)
}

// Stats reports the number of Get calls, Put calls, and fresh
// allocations since the pool was created.
func (p *BufferPool) Stats() (gets, puts, allocs int64) {
	return p.gets.Load(), p.puts.Load(), p.allocs.Load()
}
