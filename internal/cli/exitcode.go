package cli

import qcboot "github.com/openpst/go-qcboot"

// Exit codes, per spec.md 6: 0 success, 2 invalid arguments, 3
// transport failure, 4 protocol error, 5 device-reported error, 6
// cancelled.
const (
	ExitSuccess         = 0
	ExitInvalidArgs     = 2
	ExitTransportFailed = 3
	ExitProtocolError   = 4
	ExitDeviceReported  = 5
	ExitCancelled        = 6
)

// ExitCodeFor maps a root Error's Kind to the exit code it should
// produce; err is assumed non-nil.
func ExitCodeFor(err error) int {
	kind, ok := qcboot.KindOf(err)
	if !ok {
		return ExitTransportFailed
	}
	switch kind {
	case qcboot.KindTransport, qcboot.KindTransportTimeout, qcboot.KindFraming, qcboot.KindLocalIO:
		return ExitTransportFailed
	case qcboot.KindProtocol, qcboot.KindVersionUnsupported:
		return ExitProtocolError
	case qcboot.KindDeviceReported:
		return ExitDeviceReported
	case qcboot.KindCancelled:
		return ExitCancelled
	default:
		return ExitTransportFailed
	}
}
