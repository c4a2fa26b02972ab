package dload

import (
	"encoding/binary"
	"fmt"
)

// ErrShort is returned when a decoded frame is too small for the
// response it claims to be.
type ErrShort struct {
	Op   string
	Want int
	Got  int
}

func (e ErrShort) Error() string {
	return fmt.Sprintf("dload: %s: short frame: want %d bytes, got %d", e.Op, e.Want, e.Got)
}

// ErrUnexpectedCommand is returned when a decoded frame's first byte
// is neither the expected response command nor ERROR/LOG.
type ErrUnexpectedCommand struct {
	Want Command
	Got  Command
}

func (e ErrUnexpectedCommand) Error() string {
	return fmt.Sprintf("dload: unexpected response command: want %s, got %s", e.Want, e.Got)
}

func padMagic(magic string) [HelloMagicSize]byte {
	var out [HelloMagicSize]byte
	copy(out[:], magic)
	return out
}

// Encode serializes a HelloTx payload (pre-HDLC-framing).
func (h *HelloTx) Encode() []byte {
	buf := make([]byte, 1+HelloMagicSize+3)
	buf[0] = byte(CommandHello)
	magic := padMagic(h.Magic)
	copy(buf[1:1+HelloMagicSize], magic[:])
	buf[1+HelloMagicSize] = h.Version
	buf[1+HelloMagicSize+1] = h.CompatibleVersion
	buf[1+HelloMagicSize+2] = h.FeatureBits
	return buf
}

// DecodeHelloRx parses a device HELLO_RESPONSE payload.
func DecodeHelloRx(payload []byte) (*HelloRx, error) {
	const fixedSize = 1 + HelloMagicSize + 3 + 4 + 4 + 4
	if len(payload) < fixedSize {
		return nil, ErrShort{Op: "HelloResponse", Want: fixedSize, Got: len(payload)}
	}
	if err := expectCommand(payload, CommandHelloResponse); err != nil {
		return nil, err
	}
	off := 1
	magic := trimNull(payload[off : off+HelloMagicSize])
	off += HelloMagicSize
	version := payload[off]
	compat := payload[off+1]
	features := payload[off+2]
	off += 3
	flashID := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4
	window := binary.LittleEndian.Uint32(payload[off : off+4])
	off += 4
	maxBlock := binary.LittleEndian.Uint32(payload[off : off+4])

	return &HelloRx{
		Magic:                 magic,
		Version:               version,
		CompatibleVersion:     compat,
		FeatureBits:           features,
		FlashID:               flashID,
		WindowSize:            window,
		MaxPreferredBlockSize: maxBlock,
	}, nil
}

// Encode serializes an UnlockTx payload.
func (u *UnlockTx) Encode() []byte {
	buf := make([]byte, 1+UnlockCodeSize)
	buf[0] = byte(CommandUnlock)
	copy(buf[1:], u.Code[:])
	return buf
}

// EncodeSetSecurityMode serializes a single-byte SET_SECURITY_MODE payload.
func EncodeSetSecurityMode(mode uint8) []byte {
	return []byte{byte(CommandSetSecurityMode), mode}
}

// EncodeSimple serializes a command with no body: NOP, RESET, POWER_OFF.
func EncodeSimple(cmd Command) []byte {
	return []byte{byte(cmd)}
}

// EncodeReadEcc serializes a READ_ECC request (no body).
func EncodeReadEcc() []byte {
	return []byte{byte(CommandReadEcc)}
}

// DecodeReadEccResponse parses the device's 1-byte ECC status.
func DecodeReadEccResponse(payload []byte) (uint8, error) {
	if len(payload) < 2 {
		return 0, ErrShort{Op: "ReadEccResponse", Want: 2, Got: len(payload)}
	}
	if err := expectCommand(payload, CommandReadEccResponse); err != nil {
		return 0, err
	}
	return payload[1], nil
}

// EncodeSetEcc serializes a SET_ECC request carrying the desired status.
func EncodeSetEcc(status uint8) []byte {
	return []byte{byte(CommandSetEcc), status}
}

// EncodeOpenMode serializes an OPEN_MODE request.
func EncodeOpenMode(mode OpenModeValue) []byte {
	return []byte{byte(CommandOpenMode), byte(mode)}
}

// EncodeCloseMode serializes a CLOSE_MODE request (no body).
func EncodeCloseMode() []byte {
	return []byte{byte(CommandCloseMode)}
}

// EncodeOpenMultiImage serializes an OPEN_MULTI_IMAGE request.
func EncodeOpenMultiImage(imageType MultiImageType) []byte {
	return []byte{byte(CommandOpenMultiImage), byte(imageType)}
}

// EncodeReadAddress serializes a READ_ADDRESS request for one chunk.
// The engine sends one such request per ReadAddressChunk call and does
// not split a length above max_preferred_block_size itself; reads
// larger than one chunk go through internal/worker's MemoryReadWorker,
// which issues one call per chunk.
func EncodeReadAddress(address uint32, length uint32) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(CommandReadAddress)
	binary.LittleEndian.PutUint32(buf[1:5], address)
	binary.LittleEndian.PutUint32(buf[5:9], length)
	return buf
}

// DecodeReadAddressResponse parses one READ_ADDRESS_RESPONSE chunk,
// returning its raw data bytes.
func DecodeReadAddressResponse(payload []byte) (*ReadAddressResponseRx, error) {
	if len(payload) < 1 {
		return nil, ErrShort{Op: "ReadAddressResponse", Want: 1, Got: len(payload)}
	}
	if err := expectCommand(payload, CommandReadAddrResponse); err != nil {
		return nil, err
	}
	data := make([]byte, len(payload)-1)
	copy(data, payload[1:])
	return &ReadAddressResponseRx{Data: data}, nil
}

// EncodeReadQfprom serializes a READ_QFPROM request.
func EncodeReadQfprom(rowAddress, addressType uint32) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(CommandReadQfprom)
	binary.LittleEndian.PutUint32(buf[1:5], rowAddress)
	binary.LittleEndian.PutUint32(buf[5:9], addressType)
	return buf
}

// DecodeReadQfpromResponse parses the device's 4-byte fuse row value.
func DecodeReadQfpromResponse(payload []byte) (uint32, error) {
	if len(payload) < 5 {
		return 0, ErrShort{Op: "ReadQfpromResponse", Want: 5, Got: len(payload)}
	}
	if err := expectCommand(payload, CommandReadQfpromResp); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(payload[1:5]), nil
}

// writePartitionOverwriteBit is bit 0 of the header flags byte; see
// DESIGN.md for why this position was chosen absent a device trace.
const writePartitionOverwriteBit = 0x01

// EncodeWritePartitionHeader serializes the header that precedes the
// 512-byte partition table payload.
func (h *WritePartitionHeaderTx) Encode() []byte {
	flags := uint8(0)
	if h.Overwrite {
		flags |= writePartitionOverwriteBit
	}
	return []byte{byte(CommandWritePartition), flags}
}

// EncodePartitionTablePayload pads or truncates table to the fixed
// PartitionTableSize, matching the "opaque 512-byte image" contract.
func EncodePartitionTablePayload(table []byte) []byte {
	buf := make([]byte, PartitionTableSize)
	copy(buf, table)
	return buf
}

// DecodeWritePartitionResponse parses the device's 1-byte status.
func DecodeWritePartitionResponse(payload []byte) (uint8, error) {
	if len(payload) < 2 {
		return 0, ErrShort{Op: "WritePartitionTableResponse", Want: 2, Got: len(payload)}
	}
	if err := expectCommand(payload, CommandWritePartitionResponse); err != nil {
		return 0, err
	}
	return payload[1], nil
}

// DecodeError parses an ERROR frame body into a human-readable message.
func DecodeError(payload []byte) ErrorRx {
	if len(payload) <= 1 {
		return ErrorRx{Message: ""}
	}
	return ErrorRx{Message: trimNull(payload[1:])}
}

// DecodeLog parses a LOG frame body into a human-readable message.
func DecodeLog(payload []byte) LogRx {
	if len(payload) <= 1 {
		return LogRx{Message: ""}
	}
	return LogRx{Message: trimNull(payload[1:])}
}

// PeekCommand returns the first byte of a decoded frame without
// further parsing, used by the engine to dispatch to ERROR/LOG
// capture before attempting the expected-response parse.
func PeekCommand(payload []byte) (Command, error) {
	if len(payload) < 1 {
		return 0, ErrShort{Op: "PeekCommand", Want: 1, Got: 0}
	}
	return Command(payload[0]), nil
}

func expectCommand(payload []byte, want Command) error {
	got := Command(payload[0])
	if got != want {
		return ErrUnexpectedCommand{Want: want, Got: got}
	}
	return nil
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
