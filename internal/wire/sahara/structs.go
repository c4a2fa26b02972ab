package sahara

import "unsafe"

// HeaderSize is the fixed {command, length} prefix on every Sahara
// packet; length counts the whole packet, header included.
const HeaderSize = 8

// Header is the common prefix of every Sahara packet.
type Header struct {
	Command Command
	Length  uint32
}

var _ [8]byte = [unsafe.Sizeof(Header{})]byte{}

// HelloRx is the device->host HELLO packet that opens a session.
type HelloRx struct {
	Header
	Version               uint32
	VersionMinSupported   uint32
	MaxCommandPacketSize  uint32
	Mode                  Mode
	Reserved              [6]uint32
}

const HelloRxSize = 48

var _ [HelloRxSize]byte = [unsafe.Sizeof(HelloRx{})]byte{}

// HelloResponseTx is the host's reply, carrying the negotiated
// version and the mode the host wants the device to enter.
type HelloResponseTx struct {
	Header
	Version             uint32
	VersionMinSupported uint32
	Status              uint32
	Mode                Mode
	Reserved            [6]uint32
}

const HelloResponseTxSize = 48

var _ [HelloResponseTxSize]byte = [unsafe.Sizeof(HelloResponseTx{})]byte{}

// ReadDataRx is a device request for a slice of the image file,
// received while in ModeImageTxPending.
type ReadDataRx struct {
	Header
	ImageID ImageID
	Offset  uint32
	Size    uint32
}

const ReadDataRxSize = 20

var _ [ReadDataRxSize]byte = [unsafe.Sizeof(ReadDataRx{})]byte{}

// EndImageTxRx signals the device is done requesting an image.
type EndImageTxRx struct {
	Header
	ImageID ImageID
	Status  Status
}

const EndImageTxRxSize = 16

var _ [EndImageTxRxSize]byte = [unsafe.Sizeof(EndImageTxRx{})]byte{}

// DoneTx asks the device to end the Sahara session.
type DoneTx struct {
	Header
}

const DoneTxSize = HeaderSize

// DoneResponseRx carries the device's acknowledgement status.
type DoneResponseRx struct {
	Header
	Status Status
}

const DoneResponseRxSize = 12

var _ [DoneResponseRxSize]byte = [unsafe.Sizeof(DoneResponseRx{})]byte{}

// ResetTx asks the device to restart.
type ResetTx struct {
	Header
}

const ResetTxSize = HeaderSize

// ResetResponseRx acknowledges a ResetTx; the device restarts after
// sending it.
type ResetResponseRx struct {
	Header
}

const ResetResponseRxSize = HeaderSize

// MemoryDebugRx announces the location of the device's memory table.
type MemoryDebugRx struct {
	Header
	MemoryTableAddress uint32
	MemoryTableLength  uint32
}

const MemoryDebugRxSize = 16

var _ [MemoryDebugRxSize]byte = [unsafe.Sizeof(MemoryDebugRx{})]byte{}

// MemoryReadTx requests a raw memory region from the device; the
// response is MemoryLength unframed bytes, no header.
type MemoryReadTx struct {
	Header
	MemoryAddress uint32
	MemoryLength  uint32
}

const MemoryReadTxSize = 16

var _ [MemoryReadTxSize]byte = [unsafe.Sizeof(MemoryReadTx{})]byte{}

// CmdReadyRx signals the device has entered ModeCommand and will
// accept CmdSwitchModeTx or CmdExecTx.
type CmdReadyRx struct {
	Header
}

const CmdReadyRxSize = HeaderSize

// CmdSwitchModeTx leaves ModeCommand for another mode.
type CmdSwitchModeTx struct {
	Header
	Mode Mode
}

const CmdSwitchModeTxSize = 12

var _ [CmdSwitchModeTxSize]byte = [unsafe.Sizeof(CmdSwitchModeTx{})]byte{}

// CmdExecTx requests execution of a client command.
type CmdExecTx struct {
	Header
	ClientCommand ClientCommand
}

const CmdExecTxSize = 12

var _ [CmdExecTxSize]byte = [unsafe.Sizeof(CmdExecTx{})]byte{}

// CmdExecResponseRx announces how many raw bytes the client command's
// result occupies.
type CmdExecResponseRx struct {
	Header
	ClientCommand ClientCommand
	DataLength    uint32
}

const CmdExecResponseRxSize = 16

var _ [CmdExecResponseRxSize]byte = [unsafe.Sizeof(CmdExecResponseRx{})]byte{}

// CmdExecDataTx requests the raw result bytes announced by a prior
// CmdExecResponseRx.
type CmdExecDataTx struct {
	Header
	ClientCommand ClientCommand
}

const CmdExecDataTxSize = 12

var _ [CmdExecDataTxSize]byte = [unsafe.Sizeof(CmdExecDataTx{})]byte{}

// memoryTableNameSize/FilenameSize are the fixed ASCII field widths in
// a MemoryTableEntry, null-padded when shorter.
const (
	memoryTableNameSize     = 20
	memoryTableFilenameSize = 20
)

// MemoryTableEntry is one fixed-layout record inside the device's
// memory table, read as a raw region during ModeMemoryDebug via
// MemoryReadTx{MemoryTableAddress, MemoryTableLength}.
type MemoryTableEntry struct {
	Name     [memoryTableNameSize]byte
	Filename [memoryTableFilenameSize]byte
	Address  uint32
	Length   uint32
}

const MemoryTableEntrySize = 48

var _ [MemoryTableEntrySize]byte = [unsafe.Sizeof(MemoryTableEntry{})]byte{}

// NameString returns Name with its null padding trimmed.
func (e MemoryTableEntry) NameString() string {
	return trimNull(e.Name[:])
}

// FilenameString returns Filename with its null padding trimmed.
func (e MemoryTableEntry) FilenameString() string {
	return trimNull(e.Filename[:])
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
