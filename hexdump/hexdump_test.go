package hexdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintableSubstitution(t *testing.T) {
	assert.Equal(t, byte('.'), printable(0x00))
	assert.Equal(t, byte('.'), printable(0x1F))
	assert.Equal(t, byte(' '), printable(0x20))
	assert.Equal(t, byte('~'), printable(0x7E))
	assert.Equal(t, byte('.'), printable(0x7F))
	assert.Equal(t, byte('.'), printable(0xFF))
	assert.Equal(t, byte('A'), printable('A'))
}

func TestDumpLineCount(t *testing.T) {
	data := make([]byte, 33)
	for i := range data {
		data[i] = byte(i)
	}
	out := Dump(data)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3) // 16 + 16 + 1 bytes per line
	assert.True(t, strings.HasPrefix(lines[0], "00000000"))
	assert.True(t, strings.HasPrefix(lines[2], "00000020"))
}

func TestDumpNonPrintableGutter(t *testing.T) {
	data := []byte{0x00, 'A', 'B', 0xFF}
	out := Dump(data)
	assert.Contains(t, out, "|.AB.|")
}

func TestLineFormat(t *testing.T) {
	out := Line([]byte{0xDE, 0xAD, 'h', 'i'})
	assert.Equal(t, "de ad 68 69  |..hi|", out)
}
