// Package worker implements the long-running transfer workers that
// layer on top of a protocol engine: chunked memory reads and Sahara
// image transfer, each reporting progress and terminal status over an
// ordered event channel per spec.md 4.5/4.6/5.
package worker

import "github.com/google/uuid"

// EventKind is the terminal/progress vocabulary emitted by both
// workers. chunk_ready is memory-read's per-step progress event;
// chunk_done is image-transfer's equivalent, kept as a distinct name
// because the two carry slightly different meaning (bytes read vs.
// bytes served to the device).
type EventKind string

const (
	EventChunkReady EventKind = "chunk_ready"
	EventChunkDone  EventKind = "chunk_done"
	EventComplete   EventKind = "complete"
	EventError      EventKind = "error"
	EventCancelled  EventKind = "cancelled"
)

// Event is one message on a worker's ordered output channel. Only the
// fields relevant to Kind are populated; callers should switch on Kind
// before reading the rest.
type Event struct {
	Kind          EventKind
	RequestID     uuid.UUID
	LastChunkSize uint32
	Cumulative    uint64
	OutSize       uint64
	// Forced reports that this cancelled event came from the grace-
	// period watchdog rather than the worker observing the cancel flag
	// itself; the owning engine is poisoned in that case.
	Forced bool
	Err    error
}
