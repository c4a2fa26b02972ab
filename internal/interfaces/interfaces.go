// Package interfaces provides internal interface definitions shared by
// the transport, engine, and worker layers. Kept separate from the
// root package to avoid circular imports.
package interfaces

import "time"

// Transport is the byte-oriented full-duplex channel described in
// spec.md 4.1. Exactly one protocol engine owns a Transport at a time.
type Transport interface {
	// Open opens the named port at the given baud rate. Idempotent
	// when already open on the same port.
	Open(port string, baud int) error

	// Close closes the transport. Idempotent.
	Close() error

	// IsOpen reports whether the transport currently holds an open
	// port.
	IsOpen() bool

	// Read reads into buf, blocking for at most timeout. A timeout with
	// no data returns (0, nil), not an error; callers distinguish it
	// from partial/full reads by the returned count. A non-nil error
	// means the transport itself failed.
	Read(buf []byte, timeout time.Duration) (n int, err error)

	// Write writes buf in full or returns an error; partial writes are
	// never reported as success.
	Write(buf []byte) error

	// Flush discards any pending input.
	Flush() error
}

// Logger is the printf-style logging surface consumed by engines and
// workers that don't want a hard dependency on internal/logging.
type Logger interface {
	Printf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Observer receives progress notifications from a long-running
// transfer. Implementations must be safe for the worker to call from
// its own goroutine.
type Observer interface {
	OnProgress(current, total int64, label string)
}

// Confirmer synchronously asks the operator a yes/no question. The
// engine must never call this itself; only worker-dispatch code at the
// front-end boundary may (spec.md 6 and 9).
type Confirmer interface {
	Confirm(prompt string) (yes bool, err error)
}

// PathSelector asks the operator to choose a filesystem path, e.g. to
// save a dump or pick an image to send.
type PathSelector interface {
	SelectPath(kind string, filters []string) (path string, cancelled bool, err error)
}
