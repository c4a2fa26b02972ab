package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/openpst/go-qcboot/internal/interfaces"
)

var _ interfaces.Transport = (*Fake)(nil)

// Fake is an in-memory duplex transport used by engine/worker tests
// in place of a real serial port. Host
// and device each read from the queue the other writes to, guarded by
// a condition variable rather than the sharded RWMutex a random-access
// backend would use — a byte stream has no addressable ranges to
// shard, only a single producer/consumer boundary per direction.
type Fake struct {
	mu     sync.Mutex
	cond   *sync.Cond
	toDev  []byte // host writes here, device reads
	toHost []byte // device writes here, host reads
	open   bool
	closed bool
}

// NewFake returns a connected, open Fake transport pair.
func NewFake() *Fake {
	f := &Fake{open: true}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Open is a no-op beyond marking the transport open; Fake has no real
// port to dial, so port/baud are ignored.
func (f *Fake) Open(port string, baud int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("transport: fake reopened after close")
	}
	f.open = true
	f.cond.Broadcast()
	return nil
}

// Close marks the transport closed and wakes any blocked readers.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed = true
	f.cond.Broadcast()
	return nil
}

// IsOpen reports whether the transport is open.
func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Read reads host-directed bytes written by PushToHost, blocking for
// at most timeout when the queue is empty.
func (f *Fake) Read(buf []byte, timeout time.Duration) (int, error) {
	return f.read(&f.toHost, buf, timeout)
}

func (f *Fake) read(queue *[]byte, buf []byte, timeout time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for len(*queue) == 0 {
		if f.closed {
			return 0, fmt.Errorf("transport: read on closed fake transport")
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}
		waitUntil(f.cond, remaining)
	}

	n := copy(buf, *queue)
	*queue = (*queue)[n:]
	return n, nil
}

// Write appends buf to the device-directed queue, waking any blocked
// device-side reader.
func (f *Fake) Write(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("transport: write on closed fake transport")
	}
	f.toDev = append(f.toDev, buf...)
	f.cond.Broadcast()
	return nil
}

// Flush discards any queued, unread host-directed bytes.
func (f *Fake) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toHost = nil
	return nil
}

// PushToHost injects bytes as if the simulated device had sent them;
// used by tests to script a device's responses.
func (f *Fake) PushToHost(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toHost = append(f.toHost, data...)
	f.cond.Broadcast()
}

// DrainFromHost reads and removes everything the host has written so
// far, blocking for at most timeout for at least one byte to appear.
func (f *Fake) DrainFromHost(timeout time.Duration) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for len(f.toDev) == 0 && !f.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		waitUntil(f.cond, remaining)
	}
	out := f.toDev
	f.toDev = nil
	return out
}

// waitUntil wakes cond.Wait() after d elapses by running the wait on
// a timer goroutine; sync.Cond has no native timeout.
func waitUntil(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}
