// Package qcboot is the root of the Sahara / Streaming DLOAD host
// driver: shared error taxonomy and transfer metrics used by the
// internal engine and worker packages.
package qcboot

import (
	"errors"
	"fmt"
)

// Kind is the closed error taxonomy from spec.md 7.
type Kind string

const (
	KindTransport          Kind = "transport_error"
	KindTransportTimeout   Kind = "transport_timeout"
	KindFraming            Kind = "framing_error"
	KindProtocol           Kind = "protocol_error"
	KindVersionUnsupported Kind = "version_unsupported"
	KindDeviceReported     Kind = "device_reported_error"
	KindCancelled          Kind = "cancelled"
	KindLocalIO            Kind = "local_io_error"
)

// Error is a structured error carrying the operation that failed, its
// Kind, whether it poisoned the owning engine, and the wrapped cause.
type Error struct {
	Op       string // operation that failed, e.g. "sahara.HelloResponse"
	Kind     Kind
	Poisoned bool  // true if the engine must be discarded (transport closed+reopened)
	Msg      string
	Inner    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("qcboot: %s: %s (%s)", e.Op, msg, e.Kind)
	}
	return fmt.Sprintf("qcboot: %s (%s)", msg, e.Kind)
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by Kind.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New creates a structured Error.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg, Poisoned: kind.poisons()}
}

// Wrap wraps an existing error with operation context, inferring Kind
// from the wrapped *Error when possible and defaulting to KindLocalIO
// otherwise.
func Wrap(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	var qe *Error
	if errors.As(inner, &qe) {
		return &Error{Op: op, Kind: qe.Kind, Poisoned: qe.Poisoned, Msg: qe.Msg, Inner: inner}
	}
	return &Error{Op: op, Kind: KindLocalIO, Msg: inner.Error(), Inner: inner}
}

// poisons reports whether an error of this Kind leaves the owning
// engine unusable until the transport is closed and reopened, per the
// fatality rules in spec.md 7.
func (k Kind) poisons() bool {
	switch k {
	case KindTransport, KindProtocol:
		return true
	default:
		return false
	}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind, true
	}
	return "", false
}

// IsKind reports whether err is (or wraps) a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
