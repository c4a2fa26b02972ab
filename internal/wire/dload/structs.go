package dload

// HelloTx is the host's opening HELLO, sent inside an HDLC frame.
type HelloTx struct {
	Magic              string // truncated/padded to HelloMagicSize
	Version            uint8
	CompatibleVersion  uint8
	FeatureBits        uint8
}

// HelloRx is the device's HELLO reply, captured into the engine's
// device_state.hello.
type HelloRx struct {
	Magic                 string
	Version               uint8
	CompatibleVersion     uint8
	FeatureBits           uint8
	FlashID               uint32
	WindowSize            uint32
	MaxPreferredBlockSize uint32
}

// UnlockTx carries the fixed 8-byte unlock code.
type UnlockTx struct {
	Code [UnlockCodeSize]byte
}

// ErrorRx is the device's ERROR frame body; seen whenever a response
// begins with CommandErrorResponse instead of the expected command.
type ErrorRx struct {
	Message string
}

// LogRx is the device's LOG frame body, bubbled up the same way as
// ErrorRx: the operation that received it fails.
type LogRx struct {
	Message string
}

// ReadAddressResponseRx carries the raw bytes of one read_address
// chunk; read_address concatenates these across as many chunks as
// length requires.
type ReadAddressResponseRx struct {
	Data []byte
}

// WritePartitionHeaderTx precedes the 512-byte partition table
// payload; Overwrite is folded into the single flags byte (see
// DESIGN.md for the bit position decision).
type WritePartitionHeaderTx struct {
	Overwrite bool
}
