package queue

import "sync"

// BufferPool provides pooled byte slices to avoid hot-path allocations
// during image transfer and memory-read transfers. Bucketed at 4KiB,
// 64KiB, and 1MiB: 4KiB covers a single Sahara read-data/client-command
// packet, 64KiB covers a Streaming DLOAD read_address chunk ceiling,
// and 1MiB covers a full SaharaMaxMemoryRequestSize memory-read step.
//
// Uses *[]byte pattern to avoid sync.Pool interface allocation overhead.

// Buffer size thresholds
const (
	size4k  = 4 * 1024
	size64k = 64 * 1024
	size1m  = 1024 * 1024
)

// globalPool is the shared buffer pool for all transfer workers.
var globalPool = struct {
	pool4k  sync.Pool
	pool64k sync.Pool
	pool1m  sync.Pool
}{
	pool4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
	pool64k: sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool1m:  sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
}

// GetBuffer returns a buffer of at least the requested size, pooled for
// sizes up to 1MiB and freshly allocated above that.
// Caller must call PutBuffer when done.
func GetBuffer(size uint32) []byte {
	switch {
	case size <= size4k:
		return (*globalPool.pool4k.Get().(*[]byte))[:size]
	case size <= size64k:
		return (*globalPool.pool64k.Get().(*[]byte))[:size]
	case size <= size1m:
		return (*globalPool.pool1m.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer to the pool.
// The buffer's capacity determines which pool it goes to.
func PutBuffer(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size4k:
		globalPool.pool4k.Put(&buf)
	case size64k:
		globalPool.pool64k.Put(&buf)
	case size1m:
		globalPool.pool1m.Put(&buf)
		// Buffers with non-standard capacity are not returned to pool
	}
}
