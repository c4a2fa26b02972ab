package dload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelloEncode(t *testing.T) {
	h := &HelloTx{Magic: "QCOM fast download protocol host", Version: 2, CompatibleVersion: 1, FeatureBits: 0}
	encoded := h.Encode()
	assert.Equal(t, byte(CommandHello), encoded[0])
	assert.Len(t, encoded, 1+HelloMagicSize+3)
}

func TestDecodeHelloRx(t *testing.T) {
	payload := make([]byte, 1+HelloMagicSize+3+12)
	payload[0] = byte(CommandHelloResponse)
	copy(payload[1:], []byte("QCOM fast download protocol host"))
	off := 1 + HelloMagicSize
	payload[off] = 2
	payload[off+1] = 1
	payload[off+2] = 0x03
	putU32(payload, off+3, 0xAA)
	putU32(payload, off+7, 1024)
	putU32(payload, off+11, 1024)

	got, err := DecodeHelloRx(payload)
	require.NoError(t, err)
	assert.Equal(t, "QCOM fast download protocol host", got.Magic)
	assert.Equal(t, uint8(2), got.Version)
	assert.Equal(t, uint32(0xAA), got.FlashID)
	assert.Equal(t, uint32(1024), got.WindowSize)
	assert.Equal(t, uint32(1024), got.MaxPreferredBlockSize)
}

func putU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

func TestUnlockEncode(t *testing.T) {
	u := &UnlockTx{Code: [UnlockCodeSize]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	buf := u.Encode()
	require.Len(t, buf, 1+UnlockCodeSize)
	assert.Equal(t, byte(CommandUnlock), buf[0])
	assert.Equal(t, byte(8), buf[len(buf)-1])
}

func TestReadAddressEncodeDecode(t *testing.T) {
	req := EncodeReadAddress(0x10000000, 1024)
	assert.Equal(t, byte(CommandReadAddress), req[0])

	resp := make([]byte, 1+1024)
	resp[0] = byte(CommandReadAddrResponse)
	for i := 1; i < len(resp); i++ {
		resp[i] = byte(i)
	}

	got, err := DecodeReadAddressResponse(resp)
	require.NoError(t, err)
	assert.Len(t, got.Data, 1024)
	assert.Equal(t, byte(1), got.Data[0])
}

func TestReadAddressResponseUnexpectedCommandIsError(t *testing.T) {
	resp := []byte{byte(CommandErrorResponse), 'b', 'a', 'd'}
	_, err := DecodeReadAddressResponse(resp)
	require.Error(t, err)
	var unexpected ErrUnexpectedCommand
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, CommandReadAddrResponse, unexpected.Want)
	assert.Equal(t, CommandErrorResponse, unexpected.Got)
}

func TestWritePartitionHeaderOverwriteBit(t *testing.T) {
	h := &WritePartitionHeaderTx{Overwrite: true}
	buf := h.Encode()
	assert.Equal(t, byte(CommandWritePartition), buf[0])
	assert.Equal(t, uint8(writePartitionOverwriteBit), buf[1])

	h2 := &WritePartitionHeaderTx{Overwrite: false}
	assert.Equal(t, uint8(0), h2.Encode()[1])
}

func TestEncodePartitionTablePayloadPadsToFixedSize(t *testing.T) {
	table := []byte{1, 2, 3}
	buf := EncodePartitionTablePayload(table)
	require.Len(t, buf, PartitionTableSize)
	assert.Equal(t, byte(1), buf[0])
	assert.Equal(t, byte(0), buf[3])
}

func TestDecodeErrorAndLog(t *testing.T) {
	errPayload := append([]byte{byte(CommandErrorResponse)}, []byte("bad unlock code\x00")...)
	e := DecodeError(errPayload)
	assert.Equal(t, "bad unlock code", e.Message)

	logPayload := append([]byte{byte(CommandLogResponse)}, []byte("flashing partition 3")...)
	l := DecodeLog(logPayload)
	assert.Equal(t, "flashing partition 3", l.Message)
}

func TestPeekCommand(t *testing.T) {
	cmd, err := PeekCommand([]byte{byte(CommandNopResponse)})
	require.NoError(t, err)
	assert.Equal(t, CommandNopResponse, cmd)

	_, err = PeekCommand(nil)
	require.Error(t, err)
}

func TestReadQfpromRoundTrip(t *testing.T) {
	req := EncodeReadQfprom(0x100, 1)
	assert.Equal(t, byte(CommandReadQfprom), req[0])

	resp := make([]byte, 5)
	resp[0] = byte(CommandReadQfpromResp)
	putU32(resp, 1, 0xDEADBEEF)
	val, err := DecodeReadQfpromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), val)
}
