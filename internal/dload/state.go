package dload

import (
	"sync"

	"github.com/openpst/go-qcboot/internal/wire/dload"
)

// State mirrors the C++ streaming_dload_device_state struct this
// engine is modeled on: the negotiated hello plus whatever mode is
// currently open and the last captured diagnostic frames.
type State struct {
	Hello         dload.HelloRx
	OpenMode      dload.OpenModeValue
	OpenMultiMode dload.MultiImageType
	LastError     dload.ErrorRx
	LastLog       dload.LogRx
	Poisoned      bool
}

type stateBox struct {
	mu sync.Mutex
	s  State
}

func (b *stateBox) snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s
}

func (b *stateBox) update(fn func(*State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.s)
}
