// Package sahara defines the wire layout of Sahara protocol packets:
// bit-exact command structs and the enums (command IDs, modes, client
// commands, image IDs, status codes) that appear in them. Nothing in
// this package touches a transport; it is pure struct <-> []byte
// conversion, mirroring the kernel/uapi convention of keeping layout
// and marshaling colocated with the types they describe.
package sahara

import "fmt"

// Command is a Sahara packet's 4-byte command ID.
type Command uint32

const (
	CommandHello             Command = 0x01
	CommandHelloResponse     Command = 0x02
	CommandReadData          Command = 0x03
	CommandEndImageTx        Command = 0x04
	CommandDone              Command = 0x05
	CommandDoneResponse      Command = 0x06
	CommandReset             Command = 0x07
	CommandResetResponse     Command = 0x08
	CommandMemoryDebug       Command = 0x09
	CommandMemoryRead        Command = 0x0A
	CommandCmdReady          Command = 0x0B
	CommandCmdSwitchMode     Command = 0x0C
	CommandCmdExec           Command = 0x0D
	CommandCmdExecResponse   Command = 0x0E
	CommandCmdExecData       Command = 0x0F
)

var commandNames = map[Command]string{
	CommandHello:           "HELLO",
	CommandHelloResponse:   "HELLO_RESPONSE",
	CommandReadData:        "READ_DATA",
	CommandEndImageTx:      "END_IMAGE_TX",
	CommandDone:            "DONE",
	CommandDoneResponse:    "DONE_RESPONSE",
	CommandReset:           "RESET",
	CommandResetResponse:   "RESET_RESPONSE",
	CommandMemoryDebug:     "MEMORY_DEBUG",
	CommandMemoryRead:      "MEMORY_READ",
	CommandCmdReady:        "CMD_READY",
	CommandCmdSwitchMode:   "CMD_SWITCH_MODE",
	CommandCmdExec:         "CMD_EXEC",
	CommandCmdExecResponse: "CMD_EXEC_RESPONSE",
	CommandCmdExecData:     "CMD_EXEC_DATA",
}

// String renders the command's protocol name, or a hex fallback for
// unrecognized IDs (the engine treats those as protocol_error, but
// logging still wants a readable label).
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return unknownHex(uint32(c))
}

// Valid reports whether c is one of the fifteen enumerated commands.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Mode is a Sahara operating mode, selected via HELLO_RESPONSE or
// CMD_SWITCH_MODE.
type Mode uint32

const (
	ModeImageTxPending  Mode = 0x00
	ModeImageTxComplete Mode = 0x01
	ModeMemoryDebug     Mode = 0x02
	ModeCommand         Mode = 0x03
)

var modeNames = map[Mode]string{
	ModeImageTxPending:  "IMAGE_TX_PENDING",
	ModeImageTxComplete: "IMAGE_TX_COMPLETE",
	ModeMemoryDebug:     "MEMORY_DEBUG",
	ModeCommand:         "COMMAND",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return unknownHex(uint32(m))
}

// ClientCommand identifies a CMD_EXEC sub-operation executed while in
// ModeCommand.
type ClientCommand uint32

const (
	ClientCommandNop                   ClientCommand = 0x00
	ClientCommandSerialNumRead         ClientCommand = 0x01
	ClientCommandMsmHwIDRead           ClientCommand = 0x02
	ClientCommandOemPkHashRead         ClientCommand = 0x03
	ClientCommandSwitchToDmssDload     ClientCommand = 0x04
	ClientCommandSwitchToStreamDload   ClientCommand = 0x05
	ClientCommandReadDebugData         ClientCommand = 0x06
	ClientCommandGetSoftwareVersionSbl ClientCommand = 0x07
)

var clientCommandNames = map[ClientCommand]string{
	ClientCommandNop:                   "NOP",
	ClientCommandSerialNumRead:         "SERIAL_NUM_READ",
	ClientCommandMsmHwIDRead:           "MSM_HW_ID_READ",
	ClientCommandOemPkHashRead:         "OEM_PK_HASH_READ",
	ClientCommandSwitchToDmssDload:     "SWITCH_TO_DMSS_DLOAD",
	ClientCommandSwitchToStreamDload:   "SWITCH_TO_STREAMING_DLOAD",
	ClientCommandReadDebugData:         "READ_DEBUG_DATA",
	ClientCommandGetSoftwareVersionSbl: "GET_SOFTWARE_VERSION_SBL",
}

func (c ClientCommand) String() string {
	if name, ok := clientCommandNames[c]; ok {
		return name
	}
	return unknownHex(uint32(c))
}

// ImageID identifies the boot image a device's READ_DATA request is
// asking for. The set below covers the images seen across common
// Qualcomm boot chains; an unrecognized value is still transferred
// (the engine does not gate on ImageID), only logged differently.
type ImageID uint32

const (
	ImageIDNone            ImageID = 0x00
	ImageIDOEMSBL          ImageID = 0x01
	ImageIDAMSS            ImageID = 0x02
	ImageIDQCSBL           ImageID = 0x03
	ImageIDHASH            ImageID = 0x04
	ImageIDAPPSBL          ImageID = 0x05
	ImageIDAPPSBootloader  ImageID = 0x06
	ImageIDDSP1            ImageID = 0x08
	ImageIDEmergencyDload  ImageID = 0x0B
	ImageIDDBL             ImageID = 0x0C
	ImageIDOSBL            ImageID = 0x0D
	ImageIDFotaUI          ImageID = 0x0F
)

var imageIDNames = map[ImageID]string{
	ImageIDNone:           "NONE",
	ImageIDOEMSBL:         "OEMSBL",
	ImageIDAMSS:           "AMSS",
	ImageIDQCSBL:          "QCSBL",
	ImageIDHASH:           "HASH",
	ImageIDAPPSBL:         "APPSBL",
	ImageIDAPPSBootloader: "APPS_BOOTLOADER",
	ImageIDDSP1:           "DSP1",
	ImageIDEmergencyDload: "EMERGENCY_DLOAD",
	ImageIDDBL:            "DBL",
	ImageIDOSBL:           "OSBL",
	ImageIDFotaUI:         "FOTA_UI",
}

func (i ImageID) String() string {
	if name, ok := imageIDNames[i]; ok {
		return name
	}
	return unknownHex(uint32(i))
}

// Status is a Sahara device-reported error/status code, seen in
// END_IMAGE_TX and DONE_RESPONSE.
type Status uint32

const StatusSuccess Status = 0x00

func (s Status) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return unknownHex(uint32(s))
}

func unknownHex(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
