package qcboot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	e := New("sahara.Hello", KindProtocol, "unknown command 0x99")
	assert.Contains(t, e.Error(), "sahara.Hello")
	assert.Contains(t, e.Error(), "unknown command 0x99")
	assert.Contains(t, e.Error(), string(KindProtocol))
}

func TestErrorPoisoning(t *testing.T) {
	assert.True(t, New("x", KindTransport, "").Poisoned)
	assert.True(t, New("x", KindProtocol, "").Poisoned)
	assert.False(t, New("x", KindTransportTimeout, "").Poisoned)
	assert.False(t, New("x", KindDeviceReported, "").Poisoned)
}

func TestWrapPreservesKind(t *testing.T) {
	inner := New("dload.readAddress", KindFraming, "crc mismatch")
	wrapped := Wrap("dload.ReadAddress", inner)

	require.NotNil(t, wrapped)
	assert.Equal(t, KindFraming, wrapped.Kind)
	assert.True(t, errors.Is(wrapped, inner))

	var asErr *Error
	require.True(t, errors.As(wrapped, &asErr))
	assert.Equal(t, "dload.ReadAddress", asErr.Op)
}

func TestWrapDefaultsToLocalIO(t *testing.T) {
	wrapped := Wrap("worker.write", errors.New("disk full"))
	require.NotNil(t, wrapped)
	assert.Equal(t, KindLocalIO, wrapped.Kind)
}

func TestIsKindAndKindOf(t *testing.T) {
	err := New("x", KindCancelled, "")
	k, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindCancelled, k)
	assert.True(t, IsKind(err, KindCancelled))
	assert.False(t, IsKind(err, KindFraming))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
