package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeOpenIsOpen(t *testing.T) {
	f := NewFake()
	assert.True(t, f.IsOpen())
	require.NoError(t, f.Open("ignored", 115200))
	assert.True(t, f.IsOpen())
}

func TestFakeWriteThenDrain(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.Write([]byte{0x01, 0x02, 0x03}))
	got := f.DrainFromHost(100 * time.Millisecond)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func TestFakePushThenRead(t *testing.T) {
	f := NewFake()
	f.PushToHost([]byte("hello"))

	buf := make([]byte, 16)
	n, err := f.Read(buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestFakeReadTimesOutWithNoData(t *testing.T) {
	f := NewFake()
	buf := make([]byte, 16)
	start := time.Now()
	n, err := f.Read(buf, 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFakeReadUnblocksWhenDataArrivesLate(t *testing.T) {
	f := NewFake()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.PushToHost([]byte{0xAA})
	}()

	buf := make([]byte, 1)
	n, err := f.Read(buf, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, byte(0xAA), buf[0])
}

func TestFakePartialRead(t *testing.T) {
	f := NewFake()
	f.PushToHost([]byte{1, 2, 3, 4, 5})

	buf := make([]byte, 2)
	n, err := f.Read(buf, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{1, 2}, buf)

	n, err = f.Read(buf, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{3, 4}, buf)
}

func TestFakeFlushDiscardsQueuedInput(t *testing.T) {
	f := NewFake()
	f.PushToHost([]byte{1, 2, 3})
	require.NoError(t, f.Flush())

	buf := make([]byte, 4)
	n, err := f.Read(buf, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFakeCloseUnblocksReaders(t *testing.T) {
	f := NewFake()
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := f.Read(buf, time.Second)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, f.Close())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Close")
	}
	assert.False(t, f.IsOpen())
}

func TestFakeWriteAfterCloseErrors(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.Close())
	assert.Error(t, f.Write([]byte{1}))
}
