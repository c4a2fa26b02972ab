// Package constants holds protocol-wide default values shared by the
// Sahara and Streaming DLOAD engines and their transfer workers.
package constants

import "time"

// Sahara defaults.
const (
	// SaharaDefaultMaxCommandPacketSize is substituted whenever a device
	// advertises max_command_packet_size = 0 in HELLO ("use protocol
	// default" per spec.md 4.3).
	SaharaDefaultMaxCommandPacketSize = 0x1000

	// SaharaMaxMemoryRequestSize bounds a single MEMORY_READ request;
	// larger reads are split by the memory-read worker.
	SaharaMaxMemoryRequestSize = 1 << 20

	// SaharaHeaderSize is the fixed {cmd, length} header every Sahara
	// packet begins with.
	SaharaHeaderSize = 8
)

// Streaming DLOAD defaults.
const (
	// DloadDefaultMaxBlockSize is used when the device hello response
	// carries a zero max preferred block size.
	DloadDefaultMaxBlockSize = 1024

	// DloadPartitionTableSize is the fixed size of a Streaming DLOAD
	// partition table payload.
	DloadPartitionTableSize = 512

	// DloadUnlockCodeSize is the fixed size of the security unlock code.
	DloadUnlockCodeSize = 8
)

// HDLC framing bytes.
const (
	HDLCFrameEnd  = 0x7E
	HDLCFrameEsc  = 0x7D
	HDLCEscapeXOR = 0x20
)

// Timing defaults.
const (
	// DefaultControlTimeout bounds a single control-packet read.
	DefaultControlTimeout = 1 * time.Second

	// DefaultBulkTimeout bounds a single bulk-data read (image chunk,
	// memory-read chunk).
	DefaultBulkTimeout = 10 * time.Second

	// CancelGracePeriod is how long a worker is given to observe
	// cancellation before the driver force-terminates it and poisons
	// the engine (spec.md 5).
	CancelGracePeriod = 5 * time.Second
)

// Chunking defaults used by the transfer workers.
const (
	DefaultMemoryReadStepSize = SaharaMaxMemoryRequestSize
)
