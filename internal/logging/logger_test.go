package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{
			name: "json format",
			config: &Config{Level: LevelInfo, Format: "json", Output: &bytes.Buffer{}},
		},
		{
			name: "text format",
			config: &Config{Level: LevelDebug, Format: "text", Output: &bytes.Buffer{}, NoColor: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			assert.NotNil(t, logger)
		})
	}
}

func TestLoggerWithPortAndEngine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	portLogger := logger.WithPort("/dev/ttyUSB0")
	portLogger.Info("opened")

	output := buf.String()
	assert.Contains(t, output, `"port":"/dev/ttyUSB0"`)

	buf.Reset()
	engineLogger := portLogger.WithEngine("sahara")
	engineLogger.Info("hello received")

	output = buf.String()
	assert.Contains(t, output, `"port":"/dev/ttyUSB0"`)
	assert.Contains(t, output, `"engine":"sahara"`)
}

func TestLoggerWithOp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	opLogger := logger.WithOp("memory-read")
	opLogger.Debug("requesting chunk", "offset", 0, "size", 4096)

	output := buf.String()
	assert.Contains(t, output, `"op":"memory-read"`)
	assert.True(t, strings.Contains(output, `"offset":0`))
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	testErr := errors.New("framing error")
	errLogger := logger.WithError(testErr)
	errLogger.Error("decode failed")

	output := buf.String()
	assert.Contains(t, output, "framing error")
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf}))
	defer SetDefault(NewLogger(nil))

	Debug("debug message", "key", "value")
	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), `"key":"value"`)

	buf.Reset()
	Info("info message")
	assert.Contains(t, buf.String(), "info message")

	buf.Reset()
	Warn("warning message")
	assert.Contains(t, buf.String(), "warning message")

	buf.Reset()
	Error("error message")
	assert.Contains(t, buf.String(), "error message")
}
