package worker

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openpst/go-qcboot/internal/constants"
	"github.com/openpst/go-qcboot/internal/logging"
	"github.com/openpst/go-qcboot/internal/queue"
)

// MemoryReadRequest is one FIFO-queued memory-dump job (spec.md 4.5).
type MemoryReadRequest struct {
	ID          uuid.UUID
	Address     uint32
	Size        uint32
	StepSize    uint32
	OutFilePath string
}

// ChunkReader performs a single bounded memory read. Both
// sahara.Engine.ReadMemory and a dload.Engine.ReadAddressChunk
// adapter satisfy this shape; the worker is bound to whichever one the
// caller closes over rather than depending on either engine package,
// since the two don't share a named interface.
type ChunkReader func(address, length uint32, timeout time.Duration) ([]byte, error)

// MemoryReadWorker drains one MemoryReadRequest at a time.
type MemoryReadWorker struct {
	read         ChunkReader
	poison       func()
	maxChunkSize uint32
	timeout      time.Duration
	logger       *logging.Logger

	cancelRequested atomic.Bool
	done            chan struct{}
	out             chan Event
}

// NewMemoryReadWorker returns a worker bound to read (the engine's
// chunk-read call) and poison (the engine's forced-termination hook).
// maxChunkSize caps every request regardless of StepSize, mirroring
// Sahara's max_command_packet_size / Streaming DLOAD's
// max_preferred_block_size ceiling. The worker records no per-chunk
// metrics itself: sahara.Engine.ReadMemory records them when SetMetrics
// has been called, and dload.Engine.ReadAddressChunk records none.
func NewMemoryReadWorker(read ChunkReader, poison func(), maxChunkSize uint32, timeout time.Duration, logger *logging.Logger) *MemoryReadWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryReadWorker{
		read:         read,
		poison:       poison,
		maxChunkSize: maxChunkSize,
		timeout:      timeout,
		logger:       logger.WithOp("memory-read"),
	}
}

// Run starts the worker against req and returns its ordered event
// channel. The last event sent is always exactly one of
// complete/error/cancelled.
func (w *MemoryReadWorker) Run(req MemoryReadRequest) <-chan Event {
	out := make(chan Event, 8)
	done := make(chan struct{})
	w.out = out
	w.done = done
	w.cancelRequested.Store(false)
	go func() {
		defer close(done)
		w.runLoop(req, out)
	}()
	return out
}

// Cancel requests cooperative cancellation. If the worker has not
// exited within constants.CancelGracePeriod — stuck inside a single
// blocking read longer than the grace period — the engine is poisoned
// and a forced cancelled event is emitted; the stuck goroutine is
// abandoned rather than waited on further.
func (w *MemoryReadWorker) Cancel() {
	if !w.cancelRequested.CompareAndSwap(false, true) {
		return
	}
	done, out, poison := w.done, w.out, w.poison
	go func() {
		select {
		case <-done:
		case <-time.After(constants.CancelGracePeriod):
			if poison != nil {
				poison()
			}
			select {
			case out <- Event{Kind: EventCancelled, Forced: true}:
			default:
			}
		}
	}()
}

func (w *MemoryReadWorker) runLoop(req MemoryReadRequest, out chan<- Event) {
	f, err := os.Create(req.OutFilePath)
	if err != nil {
		out <- Event{Kind: EventError, RequestID: req.ID, Err: err}
		return
	}
	defer f.Close()

	step := req.StepSize
	if step == 0 {
		step = constants.DefaultMemoryReadStepSize
	}

	var cumulative uint64
	remaining := req.Size
	addr := req.Address

	for remaining > 0 {
		if w.cancelRequested.Load() {
			f.Close()
			out <- Event{Kind: EventCancelled, RequestID: req.ID, Cumulative: cumulative}
			return
		}

		chunkSize := step
		if chunkSize > remaining {
			chunkSize = remaining
		}
		if w.maxChunkSize > 0 && chunkSize > w.maxChunkSize {
			chunkSize = w.maxChunkSize
		}

		data, err := w.read(addr, chunkSize, w.timeout)
		if err != nil {
			f.Close()
			out <- Event{Kind: EventError, RequestID: req.ID, Err: err}
			return
		}

		_, writeErr := f.Write(data)
		n := uint32(len(data))
		// PutBuffer keys on capacity alone: a buffer whose capacity is
		// not exactly a bucket size (usually the case for a
		// dload.Engine.ReadAddressChunk result) is left alone, and any
		// other is taken into the pool.
		queue.PutBuffer(data)
		if writeErr != nil {
			out <- Event{Kind: EventError, RequestID: req.ID, Err: writeErr}
			return
		}

		cumulative += uint64(n)
		addr += n
		remaining -= n

		out <- Event{Kind: EventChunkReady, RequestID: req.ID, LastChunkSize: n, Cumulative: cumulative}
	}

	out <- Event{Kind: EventComplete, RequestID: req.ID, OutSize: cumulative}
}
