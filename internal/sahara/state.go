package sahara

import (
	"sync"

	"github.com/openpst/go-qcboot/internal/wire/sahara"
)

// State is a snapshot of the negotiated Sahara session, safe to copy.
// The engine keeps the authoritative copy behind its mutex; Snapshot
// hands callers (loggers, CLI status output) an immutable view.
type State struct {
	Mode                 sahara.Mode
	Version              uint32
	VersionMinSupported  uint32
	MaxCommandPacketSize uint32
	Poisoned             bool

	// Valid only while Mode == ModeImageTxPending.
	ImageID ImageReadState

	// Valid only while Mode == ModeMemoryDebug.
	Memory MemoryState
}

// ImageReadState tracks the device's current image-transfer request,
// per spec.md 3's "Sahara read request state".
type ImageReadState struct {
	Image  sahara.ImageID
	Offset uint32
	Size   uint32
}

// MemoryState tracks the device-announced memory table location.
type MemoryState struct {
	TableAddress uint32
	TableLength  uint32
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
