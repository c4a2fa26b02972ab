package sahara

import (
	"encoding/binary"
	"fmt"
)

// ErrShort is returned when a buffer is too small to unmarshal the
// requested struct.
type ErrShort struct {
	Want int
	Got  int
}

func (e ErrShort) Error() string {
	return fmt.Sprintf("sahara: short buffer: want %d bytes, got %d", e.Want, e.Got)
}

// MarshalHeader writes cmd and length into buf[0:8].
func MarshalHeader(buf []byte, cmd Command, length uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(cmd))
	binary.LittleEndian.PutUint32(buf[4:8], length)
}

// UnmarshalHeader reads the common {command, length} prefix any
// Sahara packet begins with; callers dispatch on the result before
// unmarshaling the command-specific remainder.
func UnmarshalHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShort{Want: HeaderSize, Got: len(data)}
	}
	return Header{
		Command: Command(binary.LittleEndian.Uint32(data[0:4])),
		Length:  binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// Marshal serializes h into a fresh HelloResponseTx-shaped packet.
func (h *HelloResponseTx) Marshal() []byte {
	buf := make([]byte, HelloResponseTxSize)
	MarshalHeader(buf, CommandHelloResponse, HelloResponseTxSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint32(buf[12:16], h.VersionMinSupported)
	binary.LittleEndian.PutUint32(buf[16:20], h.Status)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.Mode))
	for i, r := range h.Reserved {
		binary.LittleEndian.PutUint32(buf[24+i*4:28+i*4], r)
	}
	return buf
}

// UnmarshalHelloRx parses a device HELLO packet, header included.
func UnmarshalHelloRx(data []byte) (*HelloRx, error) {
	if len(data) < HelloRxSize {
		return nil, ErrShort{Want: HelloRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	h := &HelloRx{Header: hdr}
	h.Version = binary.LittleEndian.Uint32(data[8:12])
	h.VersionMinSupported = binary.LittleEndian.Uint32(data[12:16])
	h.MaxCommandPacketSize = binary.LittleEndian.Uint32(data[16:20])
	h.Mode = Mode(binary.LittleEndian.Uint32(data[20:24]))
	for i := range h.Reserved {
		h.Reserved[i] = binary.LittleEndian.Uint32(data[24+i*4 : 28+i*4])
	}
	return h, nil
}

// UnmarshalReadDataRx parses a device READ_DATA request.
func UnmarshalReadDataRx(data []byte) (*ReadDataRx, error) {
	if len(data) < ReadDataRxSize {
		return nil, ErrShort{Want: ReadDataRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &ReadDataRx{
		Header:  hdr,
		ImageID: ImageID(binary.LittleEndian.Uint32(data[8:12])),
		Offset:  binary.LittleEndian.Uint32(data[12:16]),
		Size:    binary.LittleEndian.Uint32(data[16:20]),
	}, nil
}

// UnmarshalEndImageTxRx parses a device END_IMAGE_TX notification.
func UnmarshalEndImageTxRx(data []byte) (*EndImageTxRx, error) {
	if len(data) < EndImageTxRxSize {
		return nil, ErrShort{Want: EndImageTxRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &EndImageTxRx{
		Header:  hdr,
		ImageID: ImageID(binary.LittleEndian.Uint32(data[8:12])),
		Status:  Status(binary.LittleEndian.Uint32(data[12:16])),
	}, nil
}

// Marshal serializes a DoneTx (just the header).
func (d *DoneTx) Marshal() []byte {
	buf := make([]byte, DoneTxSize)
	MarshalHeader(buf, CommandDone, DoneTxSize)
	return buf
}

// UnmarshalDoneResponseRx parses the device's DONE acknowledgement.
func UnmarshalDoneResponseRx(data []byte) (*DoneResponseRx, error) {
	if len(data) < DoneResponseRxSize {
		return nil, ErrShort{Want: DoneResponseRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &DoneResponseRx{
		Header: hdr,
		Status: Status(binary.LittleEndian.Uint32(data[8:12])),
	}, nil
}

// Marshal serializes a ResetTx (just the header).
func (r *ResetTx) Marshal() []byte {
	buf := make([]byte, ResetTxSize)
	MarshalHeader(buf, CommandReset, ResetTxSize)
	return buf
}

// UnmarshalResetResponseRx parses the device's RESET acknowledgement.
func UnmarshalResetResponseRx(data []byte) (*ResetResponseRx, error) {
	if len(data) < ResetResponseRxSize {
		return nil, ErrShort{Want: ResetResponseRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &ResetResponseRx{Header: hdr}, nil
}

// UnmarshalMemoryDebugRx parses the device's memory table location.
func UnmarshalMemoryDebugRx(data []byte) (*MemoryDebugRx, error) {
	if len(data) < MemoryDebugRxSize {
		return nil, ErrShort{Want: MemoryDebugRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &MemoryDebugRx{
		Header:             hdr,
		MemoryTableAddress: binary.LittleEndian.Uint32(data[8:12]),
		MemoryTableLength:  binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// Marshal serializes a MemoryReadTx request.
func (m *MemoryReadTx) Marshal() []byte {
	buf := make([]byte, MemoryReadTxSize)
	MarshalHeader(buf, CommandMemoryRead, MemoryReadTxSize)
	binary.LittleEndian.PutUint32(buf[8:12], m.MemoryAddress)
	binary.LittleEndian.PutUint32(buf[12:16], m.MemoryLength)
	return buf
}

// UnmarshalCmdReadyRx parses the device's CMD_READY notification.
func UnmarshalCmdReadyRx(data []byte) (*CmdReadyRx, error) {
	if len(data) < CmdReadyRxSize {
		return nil, ErrShort{Want: CmdReadyRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &CmdReadyRx{Header: hdr}, nil
}

// Marshal serializes a CmdSwitchModeTx request.
func (c *CmdSwitchModeTx) Marshal() []byte {
	buf := make([]byte, CmdSwitchModeTxSize)
	MarshalHeader(buf, CommandCmdSwitchMode, CmdSwitchModeTxSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(c.Mode))
	return buf
}

// Marshal serializes a CmdExecTx request.
func (c *CmdExecTx) Marshal() []byte {
	buf := make([]byte, CmdExecTxSize)
	MarshalHeader(buf, CommandCmdExec, CmdExecTxSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(c.ClientCommand))
	return buf
}

// UnmarshalCmdExecResponseRx parses the device's CMD_EXEC_RESPONSE.
func UnmarshalCmdExecResponseRx(data []byte) (*CmdExecResponseRx, error) {
	if len(data) < CmdExecResponseRxSize {
		return nil, ErrShort{Want: CmdExecResponseRxSize, Got: len(data)}
	}
	hdr, err := UnmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	return &CmdExecResponseRx{
		Header:        hdr,
		ClientCommand: ClientCommand(binary.LittleEndian.Uint32(data[8:12])),
		DataLength:    binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// Marshal serializes a CmdExecDataTx request.
func (c *CmdExecDataTx) Marshal() []byte {
	buf := make([]byte, CmdExecDataTxSize)
	MarshalHeader(buf, CommandCmdExecData, CmdExecDataTxSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(c.ClientCommand))
	return buf
}

// UnmarshalMemoryTableEntry parses one fixed-layout memory table
// record; ParseMemoryTable in internal/sahara slices a raw table dump
// into these.
func UnmarshalMemoryTableEntry(data []byte) (MemoryTableEntry, error) {
	if len(data) < MemoryTableEntrySize {
		return MemoryTableEntry{}, ErrShort{Want: MemoryTableEntrySize, Got: len(data)}
	}
	var e MemoryTableEntry
	copy(e.Name[:], data[0:memoryTableNameSize])
	copy(e.Filename[:], data[memoryTableNameSize:memoryTableNameSize+memoryTableFilenameSize])
	off := memoryTableNameSize + memoryTableFilenameSize
	e.Address = binary.LittleEndian.Uint32(data[off : off+4])
	e.Length = binary.LittleEndian.Uint32(data[off+4 : off+8])
	return e, nil
}
