// Package dload defines the wire layout of Streaming DLOAD command
// and response payloads. Framing (HDLC escape + CRC) lives in
// internal/hdlc; this package only knows about the bytes inside a
// decoded frame, the first of which is always the command ID.
package dload

import "fmt"

// Command is a Streaming DLOAD frame's first payload byte.
type Command uint8

const (
	CommandHello            Command = 0x01
	CommandHelloResponse    Command = 0x02
	CommandUnlock           Command = 0x03
	CommandUnlockResponse   Command = 0x04
	CommandNop              Command = 0x05
	CommandNopResponse      Command = 0x06
	CommandSetSecurityMode  Command = 0x07
	CommandPowerOff         Command = 0x08
	CommandReadEcc          Command = 0x09
	CommandReadEccResponse  Command = 0x0A
	CommandReset            Command = 0x0B
	CommandUnlockedResponse Command = 0x0C
	CommandOpenMode         Command = 0x0D
	CommandErrorResponse    Command = 0x0E
	CommandLogResponse      Command = 0x0F
	CommandCloseMode        Command = 0x10
	CommandOpenMultiImage   Command = 0x11
	CommandReadAddress      Command = 0x12
	CommandReadAddrResponse Command = 0x13
	CommandWritePartition   Command = 0x14
	CommandWritePartitionResponse Command = 0x15
	CommandSetEcc           Command = 0x16
	CommandSetEccResponse   Command = 0x17
	CommandReadQfprom       Command = 0x18
	CommandReadQfpromResp   Command = 0x19
)

var commandNames = map[Command]string{
	CommandHello:                  "HELLO",
	CommandHelloResponse:          "HELLO_RESPONSE",
	CommandUnlock:                 "UNLOCK",
	CommandUnlockResponse:         "UNLOCK_RESPONSE",
	CommandNop:                    "NOP",
	CommandNopResponse:            "NOP_RESPONSE",
	CommandSetSecurityMode:        "SET_SECURITY_MODE",
	CommandPowerOff:               "POWER_OFF",
	CommandReadEcc:                "READ_ECC",
	CommandReadEccResponse:        "READ_ECC_RESPONSE",
	CommandReset:                  "RESET",
	CommandUnlockedResponse:       "UNLOCKED",
	CommandOpenMode:               "OPEN_MODE",
	CommandErrorResponse:          "ERROR",
	CommandLogResponse:            "LOG",
	CommandCloseMode:              "CLOSE_MODE",
	CommandOpenMultiImage:         "OPEN_MULTI_IMAGE",
	CommandReadAddress:            "READ_ADDRESS",
	CommandReadAddrResponse:       "READ_ADDRESS_RESPONSE",
	CommandWritePartition:         "WRITE_PARTITION_TABLE",
	CommandWritePartitionResponse: "WRITE_PARTITION_TABLE_RESPONSE",
	CommandSetEcc:                 "SET_ECC",
	CommandSetEccResponse:         "SET_ECC_RESPONSE",
	CommandReadQfprom:             "READ_QFPROM",
	CommandReadQfpromResp:         "READ_QFPROM_RESPONSE",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(c))
}

// OpenModeValue identifies the flash operation mode selected by
// OpenMode.
type OpenModeValue uint8

const (
	OpenModeNone     OpenModeValue = 0x00
	OpenModeClearEFS OpenModeValue = 0x01
	OpenModeGenerate OpenModeValue = 0x02
)

var openModeNames = map[OpenModeValue]string{
	OpenModeNone:     "NONE",
	OpenModeClearEFS: "CLEAR_EFS",
	OpenModeGenerate: "GENERATE_NV",
}

func (m OpenModeValue) String() string {
	if name, ok := openModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(m))
}

// MultiImageType identifies the image opened by OpenMultiImage.
type MultiImageType uint8

const (
	MultiImageNone  MultiImageType = 0x00
	MultiImageNAND  MultiImageType = 0x01
	MultiImageEMMC  MultiImageType = 0x02
)

var multiImageNames = map[MultiImageType]string{
	MultiImageNone: "NONE",
	MultiImageNAND: "NAND",
	MultiImageEMMC: "EMMC",
}

func (m MultiImageType) String() string {
	if name, ok := multiImageNames[m]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(m))
}

// UnlockCodeSize and PartitionTableSize are fixed payload widths.
const (
	UnlockCodeSize     = 8
	PartitionTableSize = 512
	HelloMagicSize     = 32
)
