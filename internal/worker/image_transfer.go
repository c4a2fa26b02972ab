package worker

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openpst/go-qcboot/internal/constants"
	"github.com/openpst/go-qcboot/internal/logging"
	"github.com/openpst/go-qcboot/internal/queue"
	"github.com/openpst/go-qcboot/internal/sahara"
	wiresahara "github.com/openpst/go-qcboot/internal/wire/sahara"
)

// ImageTransferRequest is one Sahara image-transfer job (spec.md 4.6).
// InitialOffset/InitialChunkSize are informational only — the device's
// READ_DATA requests carry the authoritative offset/size for every
// chunk, including the first.
type ImageTransferRequest struct {
	ID               uuid.UUID
	ImageType        wiresahara.ImageID
	ImagePath        string
	InitialOffset    uint32
	InitialChunkSize uint32
	FileSize         uint64
}

// ImageTransferWorker drives one Sahara engine through IMAGE_TX to
// completion, serving the device's READ_DATA requests from ImagePath.
type ImageTransferWorker struct {
	engine  *sahara.Engine
	timeout time.Duration
	logger  *logging.Logger

	cancelRequested atomic.Bool
	done            chan struct{}
	out             chan Event
}

// NewImageTransferWorker returns a worker bound to engine, which must
// already be in ModeImageTxPending. Per-chunk metrics are the engine's
// own responsibility (WriteImageChunk already records them); the
// worker does not duplicate that accounting.
func NewImageTransferWorker(engine *sahara.Engine, timeout time.Duration, logger *logging.Logger) *ImageTransferWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImageTransferWorker{engine: engine, timeout: timeout, logger: logger.WithOp("image-transfer")}
}

// Run starts the worker against req and returns its ordered event
// channel.
func (w *ImageTransferWorker) Run(req ImageTransferRequest) <-chan Event {
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

// Cancel requests cooperative cancellation. The worker only checks the
// flag between device requests and right after finishing an in-flight
// READ_DATA response, never mid-response, so the wire is always left
// synchronized on a clean cancel. If the worker does not exit within
// constants.CancelGracePeriod — stuck inside one blocking device read
// — the engine is poisoned and a forced cancelled event is emitted.
func (w *ImageTransferWorker) Cancel() {
	if !w.cancelRequested.CompareAndSwap(false, true) {
		return
	}
	done, out, engine := w.done, w.out, w.engine
	go func() {
		select {
		case <-done:
		case <-time.After(constants.CancelGracePeriod):
			engine.Poison()
			select {
			case out <- Event{Kind: EventCancelled, Forced: true}:
			default:
			}
		}
	}()
}

func (w *ImageTransferWorker) runLoop(req ImageTransferRequest, out chan<- Event) {
	f, err := os.Open(req.ImagePath)
	if err != nil {
		out <- Event{Kind: EventError, RequestID: req.ID, Err: err}
		return
	}
	defer f.Close()

	var transferred uint64

	for {
		if w.cancelRequested.Load() {
			out <- Event{Kind: EventCancelled, RequestID: req.ID, Cumulative: transferred}
			return
		}

		cmd, err := w.engine.NextImageCommand(w.timeout)
		if err != nil {
			out <- Event{Kind: EventError, RequestID: req.ID, Err: err}
			return
		}

		if cmd.End != nil {
			if cmd.End.Status == wiresahara.StatusSuccess {
				out <- Event{Kind: EventComplete, RequestID: req.ID, OutSize: transferred}
			} else {
				out <- Event{Kind: EventError, RequestID: req.ID, Err: fmt.Errorf("device reported end of image tx with status %s", cmd.End.Status)}
			}
			return
		}

		rd := cmd.ReadData
		chunk := queue.GetBuffer(rd.Size)
		n, readErr := f.ReadAt(chunk, int64(rd.Offset))
		if readErr != nil && readErr != io.EOF {
			queue.PutBuffer(chunk)
			w.engine.Poison()
			out <- Event{Kind: EventError, RequestID: req.ID, Err: readErr}
			return
		}
		// Zero-pad past end-of-file: the engine's WriteImageChunk
		// leaves short-read padding to the caller (spec.md 4.3).
		for i := n; i < len(chunk); i++ {
			chunk[i] = 0
		}

		writeErr := w.engine.WriteImageChunk(chunk)
		chunkLen := len(chunk)
		queue.PutBuffer(chunk)
		if writeErr != nil {
			out <- Event{Kind: EventError, RequestID: req.ID, Err: writeErr}
			return
		}

		transferred += uint64(chunkLen)
		out <- Event{Kind: EventChunkDone, RequestID: req.ID, LastChunkSize: uint32(chunkLen), Cumulative: transferred}
	}
}
