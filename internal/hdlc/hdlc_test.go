package hdlc

import (
	"testing"

	qcboot "github.com/openpst/go-qcboot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x01},
		{0x7E},
		{0x7D},
		{0x7E, 0x7D, 0x7E, 0x7D},
		[]byte("hello streaming dload"),
		make([]byte, 600),
	}
	for _, p := range payloads {
		frame := Encode(p)
		assert.Equal(t, byte(frameEnd), frame[len(frame)-1])

		got, err := Decode(frame[:len(frame)-1])
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestEncodeEscapesReservedBytes(t *testing.T) {
	frame := Encode([]byte{0x7E})
	// 0x7E escapes to 0x7D 0x5E; only the final byte may be a literal 0x7E.
	for i := 0; i < len(frame)-1; i++ {
		assert.NotEqual(t, byte(frameEnd), frame[i], "literal frame-end byte leaked into body at %d", i)
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
	assert.Equal(t, qcboot.KindFraming, err.(*qcboot.Error).Kind)
}

func TestDecodeDanglingEscape(t *testing.T) {
	_, err := Decode([]byte{0x01, frameEsc})
	require.Error(t, err)
	assert.True(t, qcboot.IsKind(err, qcboot.KindFraming))
}

func TestDecodeCRCMismatch(t *testing.T) {
	frame := Encode([]byte("abc"))
	body := frame[:len(frame)-1]
	body[0] ^= 0xFF // corrupt payload without corrupting escaping structure

	_, err := Decode(body)
	require.Error(t, err)
	assert.True(t, qcboot.IsKind(err, qcboot.KindFraming))
}

func TestDecodeTooShortForTrailer(t *testing.T) {
	_, err := Decode([]byte{0x01})
	require.Error(t, err)
	assert.True(t, qcboot.IsKind(err, qcboot.KindFraming))
}

func TestSplitFramesSingle(t *testing.T) {
	frame := Encode([]byte("abc"))
	frames, remainder := SplitFrames(frame)
	require.Len(t, frames, 1)
	assert.Empty(t, remainder)

	payload, err := Decode(frames[0])
	require.NoError(t, err)
	assert.Equal(t, "abc", string(payload))
}

func TestSplitFramesMultipleAndPartial(t *testing.T) {
	var buf []byte
	buf = append(buf, Encode([]byte("one"))...)
	buf = append(buf, Encode([]byte("two"))...)
	partial := Encode([]byte("three"))
	partial = partial[:len(partial)-1] // drop trailing frame-end: still in flight
	buf = append(buf, partial...)

	frames, remainder := SplitFrames(buf)
	require.Len(t, frames, 2)
	assert.Equal(t, partial, remainder)

	p1, err := Decode(frames[0])
	require.NoError(t, err)
	assert.Equal(t, "one", string(p1))

	p2, err := Decode(frames[1])
	require.NoError(t, err)
	assert.Equal(t, "two", string(p2))
}

func FuzzEncodeDecodeRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x7E})
	f.Add([]byte{0x7D, 0x7E, 0x01})
	f.Add([]byte("streaming dload partition table"))

	f.Fuzz(func(t *testing.T, payload []byte) {
		frame := Encode(payload)
		require.Equal(t, byte(frameEnd), frame[len(frame)-1])

		got, err := Decode(frame[:len(frame)-1])
		require.NoError(t, err)
		require.Equal(t, payload, got)
	})
}

func FuzzDecodeNeverPanics(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{frameEsc})
	f.Add([]byte{frameEsc, 0x01, frameEnd})
	f.Add([]byte{0x00, 0x01, 0x02})

	f.Fuzz(func(t *testing.T, body []byte) {
		// Arbitrary bytes must never panic the decoder; corruption is
		// always reported as a framing_error.
		_, _ = Decode(body)
	})
}
