// Package pool recycles encoder scratch buffers between requests.
package pool

import (
	"bytes"
	"sync"
)

// BufferPool hands out reset byte buffers. Buffers that grew well past the
// initial capacity are dropped instead of being pooled, so one huge image does
// not pin memory for the life of the process.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool creates a pool whose buffers start with size bytes of capacity.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, size))
			},
		},
	}
}

// Get returns an empty buffer.
func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. The caller must not use buf afterwards.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > bp.size*4 {
		return
	}
	buf.Reset()
	bp.pool.Put(buf)
}

// Detach copies the buffer contents into a fresh slice owned by the caller and
// puts the buffer back.
func (bp *BufferPool) Detach(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	bp.Put(buf)
	return out
}
