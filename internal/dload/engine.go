// Package dload implements the host side of the Streaming DLOAD
// protocol: HDLC-framed hello/unlock/mode/read/write operations atop
// a byte-oriented transport.
package dload

import (
	"sync"
	"time"

	qcboot "github.com/openpst/go-qcboot"
	"github.com/openpst/go-qcboot/internal/constants"
	"github.com/openpst/go-qcboot/internal/hdlc"
	"github.com/openpst/go-qcboot/internal/interfaces"
	"github.com/openpst/go-qcboot/internal/logging"
	"github.com/openpst/go-qcboot/internal/wire/dload"
)

// Engine drives one Streaming DLOAD session. Like internal/sahara's
// Engine, every public method is serialized through callMu so the
// worker/foreground boundary can never produce overlapping protocol
// traffic on the wire.
type Engine struct {
	transport interfaces.Transport
	logger    *logging.Logger

	callMu  sync.Mutex
	rx      []byte   // unconsumed bytes from previous reads, awaiting a frame terminator
	pending [][]byte // complete frames split out of rx but not yet decoded/returned
	state   stateBox
}

// New returns an Engine bound to transport. The transport must already
// be open.
func New(transport interfaces.Transport, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{transport: transport, logger: logger.WithEngine("dload")}
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() State { return e.state.snapshot() }

// Poisoned reports whether the engine must be discarded.
func (e *Engine) Poisoned() bool { return e.state.snapshot().Poisoned }

// Poison marks the engine unusable. Exported for the worker layer: a
// forced cancellation that aborts mid-frame leaves the wire in an
// unknown state, so the caller must discard the transport too.
func (e *Engine) Poison() { e.state.update(func(s *State) { s.Poisoned = true }) }

// readFrame reads from the transport, accumulating bytes across
// multiple Read calls, until hdlc.SplitFrames yields at least one
// complete frame. A single Read can surface more than one frame at
// once (e.g. an unsolicited LOG frame batched ahead of a response);
// any frames beyond the first are kept in e.pending and drained by
// subsequent readFrame calls before touching the transport again, so
// none of them are silently dropped.
func (e *Engine) readFrame(op string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		if len(e.pending) == 0 {
			frames, remainder := hdlc.SplitFrames(e.rx)
			if len(frames) > 0 {
				e.rx = append([]byte{}, remainder...)
				e.pending = frames
			}
		}
		if len(e.pending) > 0 {
			frame := e.pending[0]
			e.pending = e.pending[1:]
			payload, err := hdlc.Decode(frame)
			if err != nil {
				return nil, qcboot.Wrap(op, err)
			}
			return payload, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, qcboot.New(op, qcboot.KindTransportTimeout, "timed out waiting for a frame")
		}
		buf := make([]byte, 4096)
		n, err := e.transport.Read(buf, remaining)
		if err != nil {
			e.Poison()
			return nil, qcboot.New(op, qcboot.KindTransport, err.Error())
		}
		if n > 0 {
			e.rx = append(e.rx, buf[:n]...)
		}
	}
}

func (e *Engine) writeFrame(op string, payload []byte) error {
	if err := e.transport.Write(hdlc.Encode(payload)); err != nil {
		e.Poison()
		return qcboot.New(op, qcboot.KindTransport, err.Error())
	}
	return nil
}

// expect reads one frame and classifies it: ERROR/LOG frames are
// captured into state and reported as device_reported_error (per
// spec.md 4.4, both "bubble up as a failed operation"); otherwise the
// payload is returned for the caller's own decoder.
func (e *Engine) expect(op string, timeout time.Duration) ([]byte, error) {
	payload, err := e.readFrame(op, timeout)
	if err != nil {
		return nil, err
	}
	cmd, err := dload.PeekCommand(payload)
	if err != nil {
		return nil, qcboot.New(op, qcboot.KindFraming, err.Error())
	}
	switch cmd {
	case dload.CommandErrorResponse:
		errRx := dload.DecodeError(payload)
		e.state.update(func(s *State) { s.LastError = errRx })
		return nil, qcboot.New(op, qcboot.KindDeviceReported, "device reported error: "+errRx.Message)
	case dload.CommandLogResponse:
		logRx := dload.DecodeLog(payload)
		e.state.update(func(s *State) { s.LastLog = logRx })
		return nil, qcboot.New(op, qcboot.KindDeviceReported, "device log: "+logRx.Message)
	default:
		return payload, nil
	}
}

// SendHello sends HELLO and populates state.Hello from the response.
func (e *Engine) SendHello(magic string, version, compatibleVersion, featureBits uint8, timeout time.Duration) (*dload.HelloRx, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &dload.HelloTx{Magic: magic, Version: version, CompatibleVersion: compatibleVersion, FeatureBits: featureBits}
	if err := e.writeFrame("dload.SendHello", req.Encode()); err != nil {
		return nil, err
	}
	payload, err := e.expect("dload.SendHello", timeout)
	if err != nil {
		return nil, err
	}
	hello, err := dload.DecodeHelloRx(payload)
	if err != nil {
		return nil, qcboot.New("dload.SendHello", qcboot.KindFraming, err.Error())
	}
	e.state.update(func(s *State) { s.Hello = *hello })
	return hello, nil
}

// SendUnlock sends the 8-byte unlock code.
func (e *Engine) SendUnlock(code [dload.UnlockCodeSize]byte, timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &dload.UnlockTx{Code: code}
	if err := e.writeFrame("dload.SendUnlock", req.Encode()); err != nil {
		return err
	}
	_, err := e.expect("dload.SendUnlock", timeout)
	return err
}

// SetSecurityMode sets the single-byte security mode.
func (e *Engine) SetSecurityMode(mode uint8, timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	if err := e.writeFrame("dload.SetSecurityMode", dload.EncodeSetSecurityMode(mode)); err != nil {
		return err
	}
	_, err := e.expect("dload.SetSecurityMode", timeout)
	return err
}

// SendNop is a fire-and-ack keepalive.
func (e *Engine) SendNop(timeout time.Duration) error {
	return e.fireAndAck("dload.SendNop", dload.EncodeSimple(dload.CommandNop), timeout)
}

// SendReset asks the device to restart; like Sahara's Reset, a
// timeout waiting for the ack is tolerated rather than fatal.
func (e *Engine) SendReset(timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame("dload.SendReset", dload.EncodeSimple(dload.CommandReset)); err != nil {
		return err
	}
	_, err := e.expect("dload.SendReset", timeout)
	if qcboot.IsKind(err, qcboot.KindTransportTimeout) {
		return nil
	}
	return err
}

// SendPowerOff asks the device to power off.
func (e *Engine) SendPowerOff(timeout time.Duration) error {
	return e.fireAndAck("dload.SendPowerOff", dload.EncodeSimple(dload.CommandPowerOff), timeout)
}

func (e *Engine) fireAndAck(op string, payload []byte, timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame(op, payload); err != nil {
		return err
	}
	_, err := e.expect(op, timeout)
	return err
}

// ReadEcc reads the device's ECC status byte.
func (e *Engine) ReadEcc(timeout time.Duration) (uint8, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	if err := e.writeFrame("dload.ReadEcc", dload.EncodeReadEcc()); err != nil {
		return 0, err
	}
	payload, err := e.expect("dload.ReadEcc", timeout)
	if err != nil {
		return 0, err
	}
	status, err := dload.DecodeReadEccResponse(payload)
	if err != nil {
		return 0, qcboot.New("dload.ReadEcc", qcboot.KindFraming, err.Error())
	}
	return status, nil
}

// SetEcc sets the device's ECC status byte.
func (e *Engine) SetEcc(status uint8, timeout time.Duration) error {
	return e.fireAndAck("dload.SetEcc", dload.EncodeSetEcc(status), timeout)
}

// OpenMode opens mode and updates state.OpenMode.
func (e *Engine) OpenMode(mode dload.OpenModeValue, timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame("dload.OpenMode", dload.EncodeOpenMode(mode)); err != nil {
		return err
	}
	if _, err := e.expect("dload.OpenMode", timeout); err != nil {
		return err
	}
	e.state.update(func(s *State) { s.OpenMode = mode })
	return nil
}

// CloseMode closes the currently open mode.
func (e *Engine) CloseMode(timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame("dload.CloseMode", dload.EncodeCloseMode()); err != nil {
		return err
	}
	if _, err := e.expect("dload.CloseMode", timeout); err != nil {
		return err
	}
	e.state.update(func(s *State) { s.OpenMode = dload.OpenModeNone })
	return nil
}

// OpenMultiImage opens a multi-image session and updates state.OpenMultiMode.
func (e *Engine) OpenMultiImage(imageType dload.MultiImageType, timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame("dload.OpenMultiImage", dload.EncodeOpenMultiImage(imageType)); err != nil {
		return err
	}
	if _, err := e.expect("dload.OpenMultiImage", timeout); err != nil {
		return err
	}
	e.state.update(func(s *State) { s.OpenMultiMode = imageType })
	return nil
}

// ReadAddressChunk requests exactly one chunk (caller enforces the
// max_preferred_block_size ceiling); internal/worker's MemoryReadWorker
// loops this for lengths larger than one chunk.
func (e *Engine) ReadAddressChunk(address, length uint32, timeout time.Duration) ([]byte, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame("dload.ReadAddress", dload.EncodeReadAddress(address, length)); err != nil {
		return nil, err
	}
	payload, err := e.expect("dload.ReadAddress", timeout)
	if err != nil {
		return nil, err
	}
	resp, err := dload.DecodeReadAddressResponse(payload)
	if err != nil {
		return nil, qcboot.New("dload.ReadAddress", qcboot.KindFraming, err.Error())
	}
	return resp.Data, nil
}

// MaxPreferredBlockSize returns the negotiated chunk ceiling, applying
// the protocol default when the device advertised zero.
func (e *Engine) MaxPreferredBlockSize() uint32 {
	s := e.state.snapshot()
	if s.Hello.MaxPreferredBlockSize == 0 {
		return constants.DloadDefaultMaxBlockSize
	}
	return s.Hello.MaxPreferredBlockSize
}

// ReadQfprom reads a single 4-byte fuse row.
func (e *Engine) ReadQfprom(rowAddress, addressType uint32, timeout time.Duration) (uint32, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.writeFrame("dload.ReadQfprom", dload.EncodeReadQfprom(rowAddress, addressType)); err != nil {
		return 0, err
	}
	payload, err := e.expect("dload.ReadQfprom", timeout)
	if err != nil {
		return 0, err
	}
	val, err := dload.DecodeReadQfpromResponse(payload)
	if err != nil {
		return 0, qcboot.New("dload.ReadQfprom", qcboot.KindFraming, err.Error())
	}
	return val, nil
}

// WritePartitionTable sends the write-partition header, the fixed
// 512-byte table payload, and returns the device's status byte.
func (e *Engine) WritePartitionTable(table []byte, overwrite bool, timeout time.Duration) (uint8, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	header := &dload.WritePartitionHeaderTx{Overwrite: overwrite}
	if err := e.writeFrame("dload.WritePartitionTable", header.Encode()); err != nil {
		return 0, err
	}
	payload := dload.EncodePartitionTablePayload(table)
	if err := e.writeFrame("dload.WritePartitionTable", payload); err != nil {
		return 0, err
	}
	resp, err := e.expect("dload.WritePartitionTable", timeout)
	if err != nil {
		return 0, err
	}
	status, err := dload.DecodeWritePartitionResponse(resp)
	if err != nil {
		return 0, qcboot.New("dload.WritePartitionTable", qcboot.KindFraming, err.Error())
	}
	return status, nil
}
