package sahara

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelloRxRoundTrip(t *testing.T) {
	want := &HelloRx{
		Header:               Header{Command: CommandHello, Length: HelloRxSize},
		Version:              2,
		VersionMinSupported:  1,
		MaxCommandPacketSize: 0x1000,
		Mode:                 ModeImageTxPending,
	}

	buf := make([]byte, HelloRxSize)
	MarshalHeader(buf, want.Command, want.Length)
	// Hand-encode the body the way a device would; HelloRx has no
	// Marshal method since the host never sends one.
	putU32(buf, 8, want.Version)
	putU32(buf, 12, want.VersionMinSupported)
	putU32(buf, 16, want.MaxCommandPacketSize)
	putU32(buf, 20, uint32(want.Mode))

	got, err := UnmarshalHelloRx(buf)
	require.NoError(t, err)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.VersionMinSupported, got.VersionMinSupported)
	assert.Equal(t, want.MaxCommandPacketSize, got.MaxCommandPacketSize)
	assert.Equal(t, want.Mode, got.Mode)
}

func putU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

func TestHelloResponseTxMarshal(t *testing.T) {
	h := &HelloResponseTx{
		Version:             2,
		VersionMinSupported: 1,
		Status:              0,
		Mode:                ModeCommand,
	}
	buf := h.Marshal()
	require.Len(t, buf, HelloResponseTxSize)

	hdr, err := UnmarshalHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, CommandHelloResponse, hdr.Command)
	assert.Equal(t, uint32(HelloResponseTxSize), hdr.Length)
}

func TestReadDataRxRoundTrip(t *testing.T) {
	buf := make([]byte, ReadDataRxSize)
	MarshalHeader(buf, CommandReadData, ReadDataRxSize)
	putU32(buf, 8, uint32(ImageIDAPPSBootloader))
	putU32(buf, 12, 40)
	putU32(buf, 16, 40)

	got, err := UnmarshalReadDataRx(buf)
	require.NoError(t, err)
	assert.Equal(t, ImageIDAPPSBootloader, got.ImageID)
	assert.Equal(t, uint32(40), got.Offset)
	assert.Equal(t, uint32(40), got.Size)
}

func TestEndImageTxRxNonzeroStatus(t *testing.T) {
	buf := make([]byte, EndImageTxRxSize)
	MarshalHeader(buf, CommandEndImageTx, EndImageTxRxSize)
	putU32(buf, 8, uint32(ImageIDAPPSBootloader))
	putU32(buf, 12, 1)

	got, err := UnmarshalEndImageTxRx(buf)
	require.NoError(t, err)
	assert.NotEqual(t, StatusSuccess, got.Status)
}

func TestMemoryReadTxMarshal(t *testing.T) {
	m := &MemoryReadTx{MemoryAddress: 0x10000000, MemoryLength: 0x1000}
	buf := m.Marshal()
	require.Len(t, buf, MemoryReadTxSize)

	hdr, err := UnmarshalHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, CommandMemoryRead, hdr.Command)
}

func TestCmdExecResponseRxRoundTrip(t *testing.T) {
	buf := make([]byte, CmdExecResponseRxSize)
	MarshalHeader(buf, CommandCmdExecResponse, CmdExecResponseRxSize)
	putU32(buf, 8, uint32(ClientCommandOemPkHashRead))
	putU32(buf, 12, 32)

	got, err := UnmarshalCmdExecResponseRx(buf)
	require.NoError(t, err)
	assert.Equal(t, ClientCommandOemPkHashRead, got.ClientCommand)
	assert.Equal(t, uint32(32), got.DataLength)
}

func TestUnmarshalShortBufferErrors(t *testing.T) {
	_, err := UnmarshalHelloRx(make([]byte, 4))
	require.Error(t, err)

	_, err = UnmarshalHeader(make([]byte, 4))
	require.Error(t, err)
}

func TestMemoryTableEntryNameTrimming(t *testing.T) {
	buf := make([]byte, MemoryTableEntrySize)
	copy(buf[0:], []byte("PBL\x00\x00\x00"))
	copy(buf[memoryTableNameSize:], []byte("pbl.bin\x00\x00"))
	putU32(buf, memoryTableNameSize+memoryTableFilenameSize, 0x2A000000)
	putU32(buf, memoryTableNameSize+memoryTableFilenameSize+4, 0x10000)

	entry, err := UnmarshalMemoryTableEntry(buf)
	require.NoError(t, err)
	assert.Equal(t, "PBL", entry.NameString())
	assert.Equal(t, "pbl.bin", entry.FilenameString())
	assert.Equal(t, uint32(0x2A000000), entry.Address)
	assert.Equal(t, uint32(0x10000), entry.Length)
}

func TestCommandStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "HELLO", CommandHello.String())
	assert.Contains(t, Command(0x99).String(), "0x")
	assert.False(t, Command(0x99).Valid())
	assert.True(t, CommandHello.Valid())
}
