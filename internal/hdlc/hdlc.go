// Package hdlc implements the byte-stuffed framing used by Streaming
// DLOAD: escape 0x7E/0x7D occurrences, append a CRC16-CCITT trailer,
// and terminate the frame with an unescaped 0x7E.
package hdlc

import (
	"encoding/binary"

	qcboot "github.com/openpst/go-qcboot"
	"github.com/openpst/go-qcboot/internal/constants"
)

const (
	frameEnd  = constants.HDLCFrameEnd
	frameEsc  = constants.HDLCFrameEsc
	escapeXOR = constants.HDLCEscapeXOR
)

// Encode appends a CRC16-CCITT trailer to payload, escapes every
// 0x7E/0x7D byte in payload||crc, and terminates the result with an
// unescaped frame-end byte.
func Encode(payload []byte) []byte {
	crc := crc16CCITT(payload) ^ 0xFFFF

	raw := make([]byte, 0, len(payload)+2)
	raw = append(raw, payload...)
	raw = binary.LittleEndian.AppendUint16(raw, crc)

	out := make([]byte, 0, len(raw)+2)
	for _, b := range raw {
		if b == frameEnd || b == frameEsc {
			out = append(out, frameEsc, b^escapeXOR)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, frameEnd)
	return out
}

// Decode unescapes a single HDLC frame (raw, not including the
// trailing frame-end byte, which the caller strips after reading up
// to it on the wire) and verifies its CRC trailer, returning the
// payload with the trailer removed.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, qcboot.New("hdlc.Decode", qcboot.KindFraming, "empty frame")
	}

	raw := make([]byte, 0, len(frame))
	for i := 0; i < len(frame); i++ {
		b := frame[i]
		if b == frameEsc {
			if i+1 >= len(frame) {
				return nil, qcboot.New("hdlc.Decode", qcboot.KindFraming, "dangling escape at end of frame")
			}
			i++
			raw = append(raw, frame[i]^escapeXOR)
			continue
		}
		if b == frameEnd {
			return nil, qcboot.New("hdlc.Decode", qcboot.KindFraming, "unescaped frame-end byte inside frame")
		}
		raw = append(raw, b)
	}

	if len(raw) < 2 {
		return nil, qcboot.New("hdlc.Decode", qcboot.KindFraming, "frame shorter than CRC trailer")
	}

	payload := raw[:len(raw)-2]
	wantCRC := binary.LittleEndian.Uint16(raw[len(raw)-2:])
	gotCRC := crc16CCITT(payload) ^ 0xFFFF
	if wantCRC != gotCRC {
		return nil, qcboot.New("hdlc.Decode", qcboot.KindFraming, "CRC mismatch")
	}

	return payload, nil
}

// SplitFrames scans buf for frame-end-delimited frames, returning the
// raw (still escaped, not yet passed through Decode) frames found so
// far and the unconsumed remainder of buf
// (a partial frame still awaiting its terminator). Used by the
// Streaming DLOAD reader loop, which accumulates raw serial reads
// until a full frame is available.
func SplitFrames(buf []byte) (frames [][]byte, remainder []byte) {
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == frameEnd {
			if i > start {
				frames = append(frames, buf[start:i])
			}
			start = i + 1
		}
	}
	remainder = buf[start:]
	return frames, remainder
}
