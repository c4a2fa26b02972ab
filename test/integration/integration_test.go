//go:build integration

// Package integration reproduces spec.md 8's six literal end-to-end
// scenarios against the fake transport, mirroring the teacher's
// test/integration/integration_test.go layout (one function per
// scenario, gated behind the integration build tag so a plain `go
// test ./...` skips the slower cancellation case).
package integration

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qcboot "github.com/openpst/go-qcboot"
	"github.com/openpst/go-qcboot/internal/dload"
	"github.com/openpst/go-qcboot/internal/sahara"
	wiredload "github.com/openpst/go-qcboot/internal/wire/dload"
	wiresahara "github.com/openpst/go-qcboot/internal/wire/sahara"
	"github.com/openpst/go-qcboot/internal/worker"
	"github.com/openpst/go-qcboot/transport"
)

const timeout = 500 * time.Millisecond

func putU32(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

// Scenario 1: hello + switch to command mode.
func TestScenarioHelloSwitchToCommandMode(t *testing.T) {
	tr := transport.NewFake()
	e := sahara.New(tr, nil)

	hello := make([]byte, wiresahara.HelloRxSize)
	wiresahara.MarshalHeader(hello, wiresahara.CommandHello, wiresahara.HelloRxSize)
	putU32(hello, 8, 2)
	putU32(hello, 12, 1)
	putU32(hello, 16, 0x1000)
	putU32(hello, 20, uint32(wiresahara.ModeImageTxPending))
	tr.PushToHost(hello)

	h, err := e.WaitHello(timeout)
	require.NoError(t, err)

	resp, err := sahara.Negotiate(h, 2, wiresahara.ModeCommand)
	require.NoError(t, err)
	require.NoError(t, e.SendHelloResponse(resp))

	cmdReady := make([]byte, wiresahara.CmdReadyRxSize)
	wiresahara.MarshalHeader(cmdReady, wiresahara.CommandCmdReady, wiresahara.CmdReadyRxSize)
	tr.PushToHost(cmdReady)
	require.NoError(t, e.WaitCmdReady(timeout))

	assert.Equal(t, wiresahara.ModeCommand, e.Snapshot().Mode)
}

// Scenario 2: image transfer, three READ_DATA chunks then END_IMAGE_TX.
func TestScenarioImageTransferThreeChunks(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "image-*.bin")
	require.NoError(t, err)
	image := make([]byte, 100)
	for i := range image {
		image[i] = byte(i)
	}
	_, err = tmp.Write(image)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	tr := transport.NewFake()
	e := sahara.New(tr, nil)
	w := worker.NewImageTransferWorker(e, timeout, nil)

	events := w.Run(worker.ImageTransferRequest{
		ID:        uuid.New(),
		ImageType: wiresahara.ImageID(0x0D),
		ImagePath: tmp.Name(),
		FileSize:  uint64(len(image)),
	})

	sendReadData := func(offset, size uint32) {
		buf := make([]byte, wiresahara.ReadDataRxSize)
		wiresahara.MarshalHeader(buf, wiresahara.CommandReadData, wiresahara.ReadDataRxSize)
		putU32(buf, 8, 0x0D)
		putU32(buf, 12, offset)
		putU32(buf, 16, size)
		tr.PushToHost(buf)
	}
	sendReadData(0, 40)
	sendReadData(40, 40)
	sendReadData(80, 20)

	endBuf := make([]byte, wiresahara.EndImageTxRxSize)
	wiresahara.MarshalHeader(endBuf, wiresahara.CommandEndImageTx, wiresahara.EndImageTxRxSize)
	putU32(endBuf, 8, 0x0D)
	putU32(endBuf, 12, uint32(wiresahara.StatusSuccess))
	tr.PushToHost(endBuf)

	var total uint64
	var chunkDones int
	var gotComplete bool
	for ev := range events {
		switch ev.Kind {
		case worker.EventChunkDone:
			chunkDones++
			total += uint64(ev.LastChunkSize)
		case worker.EventComplete:
			gotComplete = true
		case worker.EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}
	assert.Equal(t, 3, chunkDones)
	assert.EqualValues(t, 100, total)
	assert.True(t, gotComplete)
}

// Scenario 3: chunked memory read, 5000 bytes at step 0x1000 with a
// 0x1000 max command packet size yields one 4096-byte chunk and one
// 904-byte remainder.
func TestScenarioMemoryReadChunked(t *testing.T) {
	tr := transport.NewFake()
	e := sahara.New(tr, nil)
	tr.PushToHost(make([]byte, 5000))

	outPath := t.TempDir() + "/dump.bin"
	w := worker.NewMemoryReadWorker(e.ReadMemory, e.Poison, 0x1000, timeout, nil)
	events := w.Run(worker.MemoryReadRequest{
		ID:          uuid.New(),
		Address:     0x10000000,
		Size:        5000,
		StepSize:    0x1000,
		OutFilePath: outPath,
	})

	var sizes []uint32
	for ev := range events {
		switch ev.Kind {
		case worker.EventChunkReady:
			sizes = append(sizes, ev.LastChunkSize)
		case worker.EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}
	require.Len(t, sizes, 2)
	assert.EqualValues(t, 4096, sizes[0])
	assert.EqualValues(t, 904, sizes[1])
	assert.EqualValues(t, 5000, sizes[0]+sizes[1])

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, info.Size())
}

// Scenario 4: an HDLC frame ending in a dangling escape is a framing
// error, and the Streaming DLOAD engine surfaces it as KindFraming
// rather than retrying or silently resyncing.
func TestScenarioHDLCCorruptionSurfacesFramingError(t *testing.T) {
	tr := transport.NewFake()
	d := dload.New(tr, nil)

	corrupt := []byte{byte(wiredload.CommandHelloResponse), 0x7D, 0x7E}
	tr.PushToHost(corrupt)

	_, err := d.SendHello("QCOM fast download protocol host", 2, 1, 0, timeout)
	require.Error(t, err)
	assert.True(t, qcboot.IsKind(err, qcboot.KindFraming))
}

// Scenario 5: cancellation mid-dump. A 10 MiB memory read at step
// 4096 is cancelled shortly after it starts; the worker must report a
// cancelled or error event within the grace period, the output file
// must exist, and the engine must remain unpoisoned for a
// cooperative cancel.
func TestScenarioCancellationMidDump(t *testing.T) {
	tr := transport.NewFake()
	e := sahara.New(tr, nil)

	const chunk = 4096
	for i := 0; i < (10<<20)/chunk+1; i++ {
		tr.PushToHost(make([]byte, chunk))
	}

	outPath := t.TempDir() + "/dump.bin"
	w := worker.NewMemoryReadWorker(e.ReadMemory, e.Poison, chunk, timeout, nil)
	events := w.Run(worker.MemoryReadRequest{
		ID:          uuid.New(),
		Address:     0x10000000,
		Size:        10 << 20,
		StepSize:    chunk,
		OutFilePath: outPath,
	})

	var cumulative uint64
	for ev := range events {
		if ev.Kind == worker.EventChunkReady {
			cumulative = ev.Cumulative
			if cumulative >= 100<<10 {
				w.Cancel()
			}
			continue
		}
		assert.Contains(t, []worker.EventKind{worker.EventCancelled, worker.EventError}, ev.Kind)
		break
	}

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Size(), int64(100<<10))
	assert.LessOrEqual(t, info.Size(), int64(300<<10))
	assert.False(t, e.Poisoned())
}

// Scenario 6: client command — read OEM PK hash.
func TestScenarioClientCommandReadOemPkHash(t *testing.T) {
	tr := transport.NewFake()
	e := sahara.New(tr, nil)

	respBuf := make([]byte, wiresahara.CmdExecResponseRxSize)
	wiresahara.MarshalHeader(respBuf, wiresahara.CommandCmdExecResponse, wiresahara.CmdExecResponseRxSize)
	putU32(respBuf, 8, uint32(wiresahara.ClientCommandOemPkHashRead))
	putU32(respBuf, 12, 32)
	tr.PushToHost(respBuf)

	resp, err := e.ExecCommand(wiresahara.ClientCommandOemPkHashRead, timeout)
	require.NoError(t, err)
	assert.EqualValues(t, 32, resp.DataLength)

	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
	}
	tr.PushToHost(hash)

	data, err := e.ExecCommandData(wiresahara.ClientCommandOemPkHashRead, resp.DataLength, timeout)
	require.NoError(t, err)
	assert.Equal(t, hash, data)
}
