package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openpst/go-qcboot/internal/constants"
	"github.com/openpst/go-qcboot/internal/dload"
	"github.com/openpst/go-qcboot/internal/logging"
	wiredload "github.com/openpst/go-qcboot/internal/wire/dload"
	"github.com/openpst/go-qcboot/internal/worker"
	"github.com/openpst/go-qcboot/transport"
)

// helloMagic is the fixed host greeting string Streaming DLOAD expects
// in HELLO; it is padded/truncated to wiredload.HelloMagicSize on the
// wire.
const helloMagic = "QCOM fast download protocol host"

var dloadCmd = &cobra.Command{
	Use:   "dload",
	Short: "Drive the Streaming DLOAD secondary download protocol",
}

var (
	flagUnlockCode    string
	flagSecurityMode  uint8
	flagEccStatus     uint8
	flagOpenMode      string
	flagMultiImage    string
	flagQfpromRow     uint32
	flagQfpromType    uint32
	flagPartTablePath string
	flagPartOverwrite bool
	flagReadAddr      uint32
	flagReadLen       uint32
	flagReadOut       string
)

func init() {
	helloCmd := &cobra.Command{Use: "hello", Short: "Send HELLO and print the device's reply", RunE: runDloadHello}

	unlockCmd := &cobra.Command{Use: "unlock", Short: "Send the security unlock code", RunE: runDloadUnlock}
	unlockCmd.Flags().StringVar(&flagUnlockCode, "code", "", "hex-encoded 8-byte unlock code (required)")
	unlockCmd.MarkFlagRequired("code")

	secModeCmd := &cobra.Command{Use: "set-security-mode", Short: "Set the device's security mode", RunE: runDloadSetSecurityMode}
	secModeCmd.Flags().Uint8Var(&flagSecurityMode, "mode", 0, "security mode value")

	nopCmd := &cobra.Command{Use: "nop", Short: "Send NOP", RunE: wrapFireAndAck((*dload.Engine).SendNop)}
	resetCmd := &cobra.Command{Use: "reset", Short: "Send RESET", RunE: wrapFireAndAck((*dload.Engine).SendReset)}
	powerOffCmd := &cobra.Command{Use: "power-off", Short: "Send POWER_OFF", RunE: wrapFireAndAck((*dload.Engine).SendPowerOff)}

	readEccCmd := &cobra.Command{Use: "read-ecc", Short: "Read the device's ECC enabled status", RunE: runDloadReadEcc}
	setEccCmd := &cobra.Command{Use: "set-ecc", Short: "Set the device's ECC enabled status", RunE: runDloadSetEcc}
	setEccCmd.Flags().Uint8Var(&flagEccStatus, "status", 0, "0 disabled, 1 enabled")

	openModeCmd := &cobra.Command{Use: "open-mode", Short: "Open a flash operation mode", RunE: runDloadOpenMode}
	openModeCmd.Flags().StringVar(&flagOpenMode, "mode", "none", "none, clear-efs, or generate")
	closeModeCmd := &cobra.Command{Use: "close-mode", Short: "Close the current flash operation mode", RunE: wrapFireAndAck((*dload.Engine).CloseMode)}

	openMultiCmd := &cobra.Command{Use: "open-multi-image", Short: "Open a NAND/EMMC multi-image session", RunE: runDloadOpenMultiImage}
	openMultiCmd.Flags().StringVar(&flagMultiImage, "type", "none", "none, nand, or emmc")

	readAddrCmd := &cobra.Command{Use: "read-address", Short: "Read a memory range in max-block-sized chunks", RunE: runDloadReadAddress}
	readAddrCmd.Flags().Uint32Var(&flagReadAddr, "address", 0, "start address (required)")
	readAddrCmd.Flags().Uint32Var(&flagReadLen, "length", 0, "number of bytes to read (required)")
	readAddrCmd.Flags().StringVar(&flagReadOut, "out", "", "output file path (required)")
	readAddrCmd.MarkFlagRequired("address")
	readAddrCmd.MarkFlagRequired("length")
	readAddrCmd.MarkFlagRequired("out")

	readQfpromCmd := &cobra.Command{Use: "read-qfprom", Short: "Read one QFPROM row", RunE: runDloadReadQfprom}
	readQfpromCmd.Flags().Uint32Var(&flagQfpromRow, "row", 0, "QFPROM row address")
	readQfpromCmd.Flags().Uint32Var(&flagQfpromType, "type", 0, "QFPROM address type")

	writePartCmd := &cobra.Command{Use: "write-partition-table", Short: "Write a 512-byte partition table", RunE: runDloadWritePartitionTable}
	writePartCmd.Flags().StringVar(&flagPartTablePath, "file", "", "path to a 512-byte partition table image (required)")
	writePartCmd.Flags().BoolVar(&flagPartOverwrite, "overwrite", false, "overwrite an existing table rather than merging")
	writePartCmd.MarkFlagRequired("file")

	dloadCmd.AddCommand(helloCmd, unlockCmd, secModeCmd, nopCmd, resetCmd, powerOffCmd,
		readEccCmd, setEccCmd, openModeCmd, closeModeCmd, openMultiCmd,
		readAddrCmd, readQfpromCmd, writePartCmd)
}

func openDloadEngine() (*dload.Engine, *transport.Serial, error) {
	if err := requirePort(); err != nil {
		return nil, nil, err
	}
	tr := transport.NewSerial()
	if err := tr.Open(flagPort, flagBaud); err != nil {
		return nil, nil, err
	}
	logger := logging.Default().WithEngine("dload").WithPort(flagPort)
	return dload.New(tr, logger), tr, nil
}

// wrapFireAndAck adapts a no-argument, timeout-only Engine method
// (SendNop/SendReset/SendPowerOff/CloseMode) into a cobra RunE, since
// they share the same "open, call, report" shape.
func wrapFireAndAck(call func(*dload.Engine, time.Duration) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		engine, tr, err := openDloadEngine()
		if err != nil {
			return err
		}
		defer tr.Close()
		if err := call(engine, constants.DefaultControlTimeout); err != nil {
			return err
		}
		color.Green("ok")
		return nil
	}
}

func runDloadHello(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	hello, err := engine.SendHello(helloMagic, 2, 1, 0, constants.DefaultControlTimeout)
	if err != nil {
		return err
	}
	color.Green("device: magic=%q version=%d compatible=%d flash_id=0x%x window=%d max_block=%d",
		hello.Magic, hello.Version, hello.CompatibleVersion, hello.FlashID, hello.WindowSize, hello.MaxPreferredBlockSize)
	return nil
}

func runDloadUnlock(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	raw, err := hex.DecodeString(flagUnlockCode)
	if err != nil {
		return &usageError{msg: "invalid --code: " + err.Error()}
	}
	if len(raw) != wiredload.UnlockCodeSize {
		return &usageError{msg: fmt.Sprintf("--code must decode to %d bytes, got %d", wiredload.UnlockCodeSize, len(raw))}
	}
	var code [wiredload.UnlockCodeSize]byte
	copy(code[:], raw)

	if err := engine.SendUnlock(code, constants.DefaultControlTimeout); err != nil {
		return err
	}
	color.Green("unlocked")
	return nil
}

func runDloadSetSecurityMode(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()
	if err := engine.SetSecurityMode(flagSecurityMode, constants.DefaultControlTimeout); err != nil {
		return err
	}
	color.Green("security mode set to %d", flagSecurityMode)
	return nil
}

func runDloadReadEcc(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()
	status, err := engine.ReadEcc(constants.DefaultControlTimeout)
	if err != nil {
		return err
	}
	color.Green("ecc status: %d", status)
	return nil
}

func runDloadSetEcc(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()
	if err := engine.SetEcc(flagEccStatus, constants.DefaultControlTimeout); err != nil {
		return err
	}
	color.Green("ecc status set to %d", flagEccStatus)
	return nil
}

func parseOpenMode(s string) (wiredload.OpenModeValue, error) {
	switch s {
	case "none":
		return wiredload.OpenModeNone, nil
	case "clear-efs":
		return wiredload.OpenModeClearEFS, nil
	case "generate":
		return wiredload.OpenModeGenerate, nil
	default:
		return 0, &usageError{msg: "invalid --mode: " + s}
	}
}

func runDloadOpenMode(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()
	mode, err := parseOpenMode(flagOpenMode)
	if err != nil {
		return err
	}
	if err := engine.OpenMode(mode, constants.DefaultControlTimeout); err != nil {
		return err
	}
	color.Green("opened mode %v", mode)
	return nil
}

func parseMultiImageType(s string) (wiredload.MultiImageType, error) {
	switch s {
	case "none":
		return wiredload.MultiImageNone, nil
	case "nand":
		return wiredload.MultiImageNAND, nil
	case "emmc":
		return wiredload.MultiImageEMMC, nil
	default:
		return 0, &usageError{msg: "invalid --type: " + s}
	}
}

func runDloadOpenMultiImage(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()
	t, err := parseMultiImageType(flagMultiImage)
	if err != nil {
		return err
	}
	if err := engine.OpenMultiImage(t, constants.DefaultControlTimeout); err != nil {
		return err
	}
	color.Green("opened multi-image session: %v", t)
	return nil
}

func runDloadReadAddress(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	step := engine.MaxPreferredBlockSize()
	if step == 0 {
		step = constants.DloadDefaultMaxBlockSize
	}

	w := worker.NewMemoryReadWorker(engine.ReadAddressChunk, engine.Poison, step, constants.DefaultBulkTimeout, logging.Default())
	frontend := NewTerminalFrontend()
	events := w.Run(worker.MemoryReadRequest{
		ID:          uuid.New(),
		Address:     flagReadAddr,
		Size:        flagReadLen,
		StepSize:    step,
		OutFilePath: flagReadOut,
	})

	for ev := range events {
		switch ev.Kind {
		case worker.EventChunkReady:
			frontend.OnProgress(int64(ev.Cumulative), int64(flagReadLen), "read-address")
		case worker.EventComplete:
			color.Green("wrote %d bytes to %s", ev.OutSize, flagReadOut)
			return nil
		case worker.EventError:
			return ev.Err
		case worker.EventCancelled:
			return fmt.Errorf("read cancelled")
		}
	}
	return nil
}

func runDloadReadQfprom(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()
	value, err := engine.ReadQfprom(flagQfpromRow, flagQfpromType, constants.DefaultControlTimeout)
	if err != nil {
		return err
	}
	color.Green("qfprom row 0x%x (type %d): 0x%x", flagQfpromRow, flagQfpromType, value)
	return nil
}

func runDloadWritePartitionTable(cmd *cobra.Command, args []string) error {
	engine, tr, err := openDloadEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	table, err := os.ReadFile(flagPartTablePath)
	if err != nil {
		return err
	}
	if len(table) != wiredload.PartitionTableSize {
		return &usageError{msg: fmt.Sprintf("partition table must be exactly %d bytes, got %d", wiredload.PartitionTableSize, len(table))}
	}

	status, err := engine.WritePartitionTable(table, flagPartOverwrite, constants.DefaultBulkTimeout)
	if err != nil {
		return err
	}
	color.Green("partition table written, device status %d", status)
	return nil
}
