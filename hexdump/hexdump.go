// Package hexdump formats binary buffers for diagnostic log output.
// It mirrors the original OpenPST hexdump helper: each line shows an
// offset, sixteen space-separated hex bytes, and an ASCII gutter where
// non-printable bytes are substituted with '.' — kept byte-for-byte
// stable so log output can be diffed across runs.
package hexdump

import (
	"fmt"
	"strings"
)

const bytesPerLine = 16

// printable substitutes non-printable bytes with '.', exactly as the
// legacy hex_trans lookup table did (bytes 0x00-0x1F and 0x7F-0xFF are
// replaced; 0x20-0x7E pass through unchanged).
func printable(b byte) byte {
	if b < 0x20 || b > 0x7E {
		return '.'
	}
	return b
}

// Dump renders data as a multi-line hex dump with an 8-hex-digit
// offset column, 16 space-separated hex bytes, and an ASCII gutter.
func Dump(data []byte) string {
	var b strings.Builder
	for offset := 0; offset < len(data); offset += bytesPerLine {
		end := offset + bytesPerLine
		if end > len(data) {
			end = len(data)
		}
		line := data[offset:end]

		fmt.Fprintf(&b, "%08x  ", offset)
		for i := 0; i < bytesPerLine; i++ {
			if i < len(line) {
				fmt.Fprintf(&b, "%02x ", line[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}

		b.WriteString(" |")
		for _, c := range line {
			b.WriteByte(printable(c))
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// Line renders a single compact "hex  ascii" line with no offset
// column, used for short fixed-size responses (e.g. a 32-byte OEM PK
// hash) where a full multi-line dump would be noise.
func Line(data []byte) string {
	var hex strings.Builder
	var ascii strings.Builder
	for _, c := range data {
		fmt.Fprintf(&hex, "%02x ", c)
		ascii.WriteByte(printable(c))
	}
	return strings.TrimRight(hex.String(), " ") + "  |" + ascii.String() + "|"
}
