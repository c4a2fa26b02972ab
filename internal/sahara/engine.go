// Package sahara implements the host side of the Sahara protocol
// state machine: hello negotiation, image transfer, memory debug, and
// client command dispatch, atop a byte-oriented transport.
package sahara

import (
	"sync"
	"time"

	qcboot "github.com/openpst/go-qcboot"
	"github.com/openpst/go-qcboot/internal/constants"
	"github.com/openpst/go-qcboot/internal/interfaces"
	"github.com/openpst/go-qcboot/internal/logging"
	"github.com/openpst/go-qcboot/internal/queue"
	"github.com/openpst/go-qcboot/internal/wire/sahara"
)

// Engine drives one Sahara session over a transport. Only one caller
// may be inside an Engine method at a time; callMu enforces this
// rather than trusting callers to serialize themselves, since the
// worker/foreground boundary is exactly where that discipline would
// otherwise be easy to violate under cancellation.
type Engine struct {
	transport interfaces.Transport
	logger    *logging.Logger
	metrics   *qcboot.Metrics

	callMu sync.Mutex
	state  stateBox
}

// New returns an Engine bound to transport. The transport must already
// be open.
func New(transport interfaces.Transport, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{transport: transport, logger: logger.WithEngine("sahara")}
	e.state.update(func(s *State) {
		s.MaxCommandPacketSize = constants.SaharaDefaultMaxCommandPacketSize
	})
	return e
}

// SetMetrics attaches a Metrics sink; optional.
func (e *Engine) SetMetrics(m *qcboot.Metrics) { e.metrics = m }

// Snapshot returns the current session state.
func (e *Engine) Snapshot() State { return e.state.snapshot() }

// Poisoned reports whether the engine must be discarded.
func (e *Engine) Poisoned() bool { return e.state.snapshot().Poisoned }

func (e *Engine) poison() {
	e.state.update(func(s *State) { s.Poisoned = true })
}

// Poison marks the engine unusable. Exported for the worker layer: a
// forced cancellation that aborts mid-packet leaves the wire in an
// unknown state, so the caller must discard the transport too.
func (e *Engine) Poison() { e.poison() }

// readInto fills buf completely, looping transport.Read calls until
// satisfied or the overall deadline elapses. A timeout with partial
// data is reported the same as a short read: protocol_error.
func (e *Engine) readInto(op string, buf []byte, timeout time.Duration) error {
	got := 0
	n := len(buf)
	deadline := time.Now().Add(timeout)
	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if got > 0 {
				e.poison()
				return qcboot.New(op, qcboot.KindProtocol, "short read: timed out with partial data")
			}
			return qcboot.New(op, qcboot.KindTransportTimeout, "timed out waiting for data")
		}
		read, err := e.transport.Read(buf[got:], remaining)
		if err != nil {
			e.poison()
			return qcboot.New(op, qcboot.KindTransport, err.Error())
		}
		if read == 0 {
			continue
		}
		got += read
	}
	return nil
}

// readExact reads exactly n bytes into a freshly allocated buffer. Used
// for one-off control packets (headers, HELLO, CMD_READY) that are
// parsed and discarded rather than handed back up to a worker, so
// there is no hot-path reuse to pool.
func (e *Engine) readExact(op string, n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	if err := e.readInto(op, buf, timeout); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *Engine) write(op string, buf []byte) error {
	if err := e.transport.Write(buf); err != nil {
		e.poison()
		return qcboot.New(op, qcboot.KindTransport, err.Error())
	}
	return nil
}

// readPacket reads a Sahara {command,length} header, then the rest of
// the packet up to length bytes, returning the whole raw packet.
func (e *Engine) readPacket(op string, timeout time.Duration) ([]byte, error) {
	header, err := e.readExact(op, sahara.HeaderSize, timeout)
	if err != nil {
		return nil, err
	}
	hdr, err := sahara.UnmarshalHeader(header)
	if err != nil {
		return nil, qcboot.New(op, qcboot.KindProtocol, err.Error())
	}
	if !hdr.Command.Valid() {
		e.poison()
		return nil, qcboot.New(op, qcboot.KindProtocol, "unknown command "+hdr.Command.String())
	}
	if hdr.Length < sahara.HeaderSize {
		e.poison()
		return nil, qcboot.New(op, qcboot.KindProtocol, "packet length shorter than header")
	}

	rest, err := e.readExact(op, int(hdr.Length)-sahara.HeaderSize, timeout)
	if err != nil {
		return nil, err
	}
	return append(header, rest...), nil
}

// WaitHello blocks for the device's unsolicited HELLO.
func (e *Engine) WaitHello(timeout time.Duration) (*sahara.HelloRx, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	packet, err := e.readPacket("sahara.WaitHello", timeout)
	if err != nil {
		return nil, err
	}
	hello, err := sahara.UnmarshalHelloRx(packet)
	if err != nil {
		e.poison()
		return nil, qcboot.New("sahara.WaitHello", qcboot.KindProtocol, err.Error())
	}
	if hello.Command != sahara.CommandHello {
		e.poison()
		return nil, qcboot.New("sahara.WaitHello", qcboot.KindProtocol, "expected HELLO, got "+hello.Command.String())
	}

	maxPkt := hello.MaxCommandPacketSize
	if maxPkt == 0 {
		maxPkt = constants.SaharaDefaultMaxCommandPacketSize
	}
	e.state.update(func(s *State) {
		s.Version = hello.Version
		s.VersionMinSupported = hello.VersionMinSupported
		s.MaxCommandPacketSize = maxPkt
	})
	return hello, nil
}

// Negotiate applies the version-downgrade rule from spec.md 4.3 and
// returns the HELLO_RESPONSE the host should send, or
// version_unsupported if no compatible version exists.
func Negotiate(hello *sahara.HelloRx, hostMaxVersion uint32, desiredMode sahara.Mode) (*sahara.HelloResponseTx, error) {
	negotiated := hello.Version
	if negotiated > hostMaxVersion {
		negotiated = hostMaxVersion
	}
	if negotiated < hello.VersionMinSupported {
		return nil, qcboot.New("sahara.Negotiate", qcboot.KindVersionUnsupported,
			"no common version: device min is higher than host max")
	}
	return &sahara.HelloResponseTx{
		Version:             negotiated,
		VersionMinSupported: hello.VersionMinSupported,
		Status:              0,
		Mode:                desiredMode,
	}, nil
}

// SendHelloResponse writes resp and updates the session's mode; this
// is also how a mode switch happens (no separate handshake).
func (e *Engine) SendHelloResponse(resp *sahara.HelloResponseTx) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	if err := e.write("sahara.HelloResponse", resp.Marshal()); err != nil {
		return err
	}
	e.state.update(func(s *State) {
		s.Mode = resp.Mode
		s.Version = resp.Version
	})
	return nil
}

// ImageCommand is the next device request received in ModeImageTxPending:
// exactly one of ReadData or End is non-nil.
type ImageCommand struct {
	ReadData *sahara.ReadDataRx
	End      *sahara.EndImageTxRx
}

// NextImageCommand reads the device's next READ_DATA or END_IMAGE_TX
// packet while in ModeImageTxPending.
func (e *Engine) NextImageCommand(timeout time.Duration) (*ImageCommand, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	packet, err := e.readPacket("sahara.NextImageCommand", timeout)
	if err != nil {
		return nil, err
	}
	hdr, _ := sahara.UnmarshalHeader(packet)
	switch hdr.Command {
	case sahara.CommandReadData:
		rd, err := sahara.UnmarshalReadDataRx(packet)
		if err != nil {
			e.poison()
			return nil, qcboot.New("sahara.NextImageCommand", qcboot.KindProtocol, err.Error())
		}
		e.state.update(func(s *State) {
			s.ImageID = ImageReadState{Image: rd.ImageID, Offset: rd.Offset, Size: rd.Size}
		})
		return &ImageCommand{ReadData: rd}, nil
	case sahara.CommandEndImageTx:
		end, err := sahara.UnmarshalEndImageTxRx(packet)
		if err != nil {
			e.poison()
			return nil, qcboot.New("sahara.NextImageCommand", qcboot.KindProtocol, err.Error())
		}
		return &ImageCommand{End: end}, nil
	default:
		e.poison()
		return nil, qcboot.New("sahara.NextImageCommand", qcboot.KindProtocol, "unexpected command "+hdr.Command.String())
	}
}

// WriteImageChunk writes exactly len(data) raw, unframed bytes as the
// response to a READ_DATA request. The caller (image-transfer worker)
// is responsible for zero-padding short reads from the image file
// before calling this, per spec.md 4.3.
func (e *Engine) WriteImageChunk(data []byte) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()
	if err := e.write("sahara.WriteImageChunk", data); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.RecordChunk("image", uint64(len(data)), 0, true)
	}
	return nil
}

// WaitMemoryDebug blocks for the device's MEMORY_DEBUG announcement.
func (e *Engine) WaitMemoryDebug(timeout time.Duration) (*sahara.MemoryDebugRx, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	packet, err := e.readPacket("sahara.WaitMemoryDebug", timeout)
	if err != nil {
		return nil, err
	}
	md, err := sahara.UnmarshalMemoryDebugRx(packet)
	if err != nil {
		e.poison()
		return nil, qcboot.New("sahara.WaitMemoryDebug", qcboot.KindProtocol, err.Error())
	}
	e.state.update(func(s *State) {
		s.Memory = MemoryState{TableAddress: md.MemoryTableAddress, TableLength: md.MemoryTableLength}
	})
	return md, nil
}

// ReadMemory requests length bytes at address and returns them raw.
// Callers must cap length at MaxCommandPacketSize themselves; larger
// reads are split by the memory-read worker.
func (e *Engine) ReadMemory(address, length uint32, timeout time.Duration) ([]byte, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &sahara.MemoryReadTx{MemoryAddress: address, MemoryLength: length}
	if err := e.write("sahara.ReadMemory", req.Marshal()); err != nil {
		return nil, err
	}
	// Pooled: this is the per-chunk buffer memory-read workers push
	// through to a file and return via queue.PutBuffer once written.
	data := queue.GetBuffer(length)
	if err := e.readInto("sahara.ReadMemory", data, timeout); err != nil {
		queue.PutBuffer(data)
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordChunk("memory", uint64(len(data)), 0, true)
	}
	return data, nil
}

// WaitCmdReady blocks for the device's CMD_READY, signalling entry
// into ModeCommand.
func (e *Engine) WaitCmdReady(timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	packet, err := e.readPacket("sahara.WaitCmdReady", timeout)
	if err != nil {
		return err
	}
	if _, err := sahara.UnmarshalCmdReadyRx(packet); err != nil {
		e.poison()
		return qcboot.New("sahara.WaitCmdReady", qcboot.KindProtocol, err.Error())
	}
	return nil
}

// SwitchMode leaves ModeCommand for another mode.
func (e *Engine) SwitchMode(mode sahara.Mode) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &sahara.CmdSwitchModeTx{Mode: mode}
	if err := e.write("sahara.SwitchMode", req.Marshal()); err != nil {
		return err
	}
	e.state.update(func(s *State) { s.Mode = mode })
	return nil
}

// ExecCommand requests execution of a client command and returns the
// device's announcement of the result size.
func (e *Engine) ExecCommand(cmd sahara.ClientCommand, timeout time.Duration) (*sahara.CmdExecResponseRx, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &sahara.CmdExecTx{ClientCommand: cmd}
	if err := e.write("sahara.ExecCommand", req.Marshal()); err != nil {
		return nil, err
	}
	packet, err := e.readPacket("sahara.ExecCommand", timeout)
	if err != nil {
		return nil, err
	}
	resp, err := sahara.UnmarshalCmdExecResponseRx(packet)
	if err != nil {
		e.poison()
		return nil, qcboot.New("sahara.ExecCommand", qcboot.KindProtocol, err.Error())
	}
	return resp, nil
}

// ExecCommandData requests and reads the raw result bytes announced
// by a prior ExecCommand response.
func (e *Engine) ExecCommandData(cmd sahara.ClientCommand, size uint32, timeout time.Duration) ([]byte, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &sahara.CmdExecDataTx{ClientCommand: cmd}
	if err := e.write("sahara.ExecCommandData", req.Marshal()); err != nil {
		return nil, err
	}
	return e.readExact("sahara.ExecCommandData", int(size), timeout)
}

// Done sends DONE and waits for DONE_RESPONSE; the device halts
// further Sahara dialog afterward.
func (e *Engine) Done(timeout time.Duration) (*sahara.DoneResponseRx, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &sahara.DoneTx{}
	if err := e.write("sahara.Done", req.Marshal()); err != nil {
		return nil, err
	}
	packet, err := e.readPacket("sahara.Done", timeout)
	if err != nil {
		return nil, err
	}
	resp, err := sahara.UnmarshalDoneResponseRx(packet)
	if err != nil {
		e.poison()
		return nil, qcboot.New("sahara.Done", qcboot.KindProtocol, err.Error())
	}
	return resp, nil
}

// Reset sends RESET; the device restarts and may not answer on this
// port again, so a read timeout here is tolerated rather than fatal.
func (e *Engine) Reset(timeout time.Duration) error {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	req := &sahara.ResetTx{}
	if err := e.write("sahara.Reset", req.Marshal()); err != nil {
		return err
	}
	_, err := e.readPacket("sahara.Reset", timeout)
	if err != nil && qcboot.IsKind(err, qcboot.KindTransportTimeout) {
		return nil
	}
	return err
}

// ReadMemoryTableRaw reads the whole memory table announced by the
// device's MEMORY_DEBUG packet (WaitMemoryDebug must have already run)
// in one ReadMemory call, returning the owned, unparsed bytes so a
// caller can persist them verbatim before parsing (spec.md 6's
// optional raw memory-table save).
func (e *Engine) ReadMemoryTableRaw(timeout time.Duration) ([]byte, error) {
	mem := e.Snapshot().Memory
	return e.ReadMemory(mem.TableAddress, mem.TableLength, timeout)
}

// ParseMemoryTable slices a raw memory table dump into its fixed-layout
// entries, per spec.md 4.3: zero-size entries are kept in the raw
// table but skipped by the dump worker (see internal/worker).
func ParseMemoryTable(raw []byte) ([]sahara.MemoryTableEntry, error) {
	if len(raw)%sahara.MemoryTableEntrySize != 0 {
		return nil, qcboot.New("sahara.ParseMemoryTable", qcboot.KindProtocol, "table length not a multiple of entry size")
	}
	count := len(raw) / sahara.MemoryTableEntrySize
	entries := make([]sahara.MemoryTableEntry, 0, count)
	for i := 0; i < count; i++ {
		start := i * sahara.MemoryTableEntrySize
		entry, err := sahara.UnmarshalMemoryTableEntry(raw[start : start+sahara.MemoryTableEntrySize])
		if err != nil {
			return nil, qcboot.Wrap("sahara.ParseMemoryTable", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
