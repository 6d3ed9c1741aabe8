// Package pool provides reusable copy buffers so that hashing and transfers
// of large files do not allocate per call.
package pool

import (
	"sync"
)

const (
	// SmallBufferSize defines the size for small buffers (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize defines the size for medium buffers (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize defines the size for large buffers (1MB)
	LargeBufferSize = 1024 * 1024
)

// BufferPool manages reusable full-length buffers of three sizes.
type BufferPool struct {
	small  *sync.Pool
	medium *sync.Pool
	large  *sync.Pool
}

func newSizedPool(size int) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// NewBufferPool creates a new buffer pool with default sizes.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  newSizedPool(SmallBufferSize),
		medium: newSizedPool(MediumBufferSize),
		large:  newSizedPool(LargeBufferSize),
	}
}

// Get returns a buffer whose length is the smallest pooled size that can hold
// size bytes, suitable for io.CopyBuffer. Requests above LargeBufferSize get a
// fresh allocation of exactly size bytes. Non-positive sizes get a medium buffer.
func (bp *BufferPool) Get(size int) []byte {
	var p *sync.Pool
	switch {
	case size <= 0:
		p = bp.medium
	case size <= SmallBufferSize:
		p = bp.small
	case size <= MediumBufferSize:
		p = bp.medium
	case size <= LargeBufferSize:
		p = bp.large
	default:
		return make([]byte, size)
	}
	bufPtr := p.Get().(*[]byte)
	return (*bufPtr)[:cap(*bufPtr)]
}

// Put returns a buffer to the pool matching its capacity.
// Buffers of any other capacity are dropped.
func (bp *BufferPool) Put(buf []byte) {
	buf = buf[:cap(buf)]
	switch cap(buf) {
	case SmallBufferSize:
		bp.small.Put(&buf)
	case MediumBufferSize:
		bp.medium.Put(&buf)
	case LargeBufferSize:
		bp.large.Put(&buf)
	}
}

var globalBufferPool = NewBufferPool()

// Get returns a buffer from the global pool for the specified size.
func Get(size int) []byte {
	return globalBufferPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalBufferPool.Put(buf)
}
