package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openpst/go-qcboot/internal/constants"
	"github.com/openpst/go-qcboot/internal/logging"
	"github.com/openpst/go-qcboot/internal/sahara"
	wiresahara "github.com/openpst/go-qcboot/internal/wire/sahara"
	"github.com/openpst/go-qcboot/internal/worker"
	"github.com/openpst/go-qcboot/transport"
)

var saharaCmd = &cobra.Command{
	Use:   "sahara",
	Short: "Drive the Sahara bootloader dialog",
}

var (
	flagImagePath    string
	flagImageID      uint32
	flagDumpAddress  uint32
	flagDumpLength   uint32
	flagDumpOut      string
	flagDumpDir      string
	flagSaveTable    string
	flagLargeFileMiB uint32
)

func init() {
	helloCmd := &cobra.Command{
		Use:   "hello",
		Short: "Wait for HELLO, negotiate a mode, and switch to it",
		RunE:  runSaharaHello,
	}
	helloCmd.Flags().String("mode", "command", "mode to request: command or image-tx-pending")

	sendImageCmd := &cobra.Command{
		Use:   "send-image",
		Short: "Serve READ_DATA requests for one image from a file",
		RunE:  runSaharaSendImage,
	}
	sendImageCmd.Flags().StringVar(&flagImagePath, "file", "", "path to the image file (required)")
	sendImageCmd.Flags().Uint32Var(&flagImageID, "image-id", uint32(wiresahara.ImageIDAPPSBootloader), "Sahara image id to announce")
	sendImageCmd.MarkFlagRequired("file")

	dumpMemoryCmd := &cobra.Command{
		Use:   "dump-memory",
		Short: "Read a single memory range to a file",
		RunE:  runSaharaDumpMemory,
	}
	dumpMemoryCmd.Flags().Uint32Var(&flagDumpAddress, "address", 0, "start address (required)")
	dumpMemoryCmd.Flags().Uint32Var(&flagDumpLength, "length", 0, "number of bytes to read (required)")
	dumpMemoryCmd.Flags().StringVar(&flagDumpOut, "out", "", "output file path (required)")
	dumpMemoryCmd.MarkFlagRequired("address")
	dumpMemoryCmd.MarkFlagRequired("length")
	dumpMemoryCmd.MarkFlagRequired("out")

	dumpTableCmd := &cobra.Command{
		Use:   "dump-table",
		Short: "Read the device's memory table and dump every named region",
		RunE:  runSaharaDumpTable,
	}
	dumpTableCmd.Flags().StringVar(&flagDumpDir, "out-dir", ".", "directory to write dumped regions into")
	dumpTableCmd.Flags().StringVar(&flagSaveTable, "save-table", "", "optional path to save the raw, unparsed memory table")
	dumpTableCmd.Flags().Uint32Var(&flagLargeFileMiB, "confirm-above-mib", 1, "prompt before dumping a region larger than this many MiB")

	saharaCmd.AddCommand(helloCmd, sendImageCmd, dumpMemoryCmd, dumpTableCmd)
}

func openSaharaEngine() (*sahara.Engine, *transport.Serial, error) {
	if err := requirePort(); err != nil {
		return nil, nil, err
	}
	tr := transport.NewSerial()
	if err := tr.Open(flagPort, flagBaud); err != nil {
		return nil, nil, err
	}
	logger := logging.Default().WithEngine("sahara").WithPort(flagPort)
	return sahara.New(tr, logger), tr, nil
}

func runSaharaHello(cmd *cobra.Command, args []string) error {
	engine, tr, err := openSaharaEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode := wiresahara.ModeCommand
	if modeFlag == "image-tx-pending" {
		mode = wiresahara.ModeImageTxPending
	}

	hello, err := engine.WaitHello(constants.DefaultControlTimeout)
	if err != nil {
		return err
	}
	resp, err := sahara.Negotiate(hello, hello.Version, mode)
	if err != nil {
		return err
	}
	if err := engine.SendHelloResponse(resp); err != nil {
		return err
	}
	if mode == wiresahara.ModeCommand {
		if err := engine.WaitCmdReady(constants.DefaultControlTimeout); err != nil {
			return err
		}
	}
	color.Green("negotiated version %d, mode %v", resp.Version, mode)
	return nil
}

func runSaharaSendImage(cmd *cobra.Command, args []string) error {
	engine, tr, err := openSaharaEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := os.Stat(flagImagePath)
	if err != nil {
		return err
	}

	w := worker.NewImageTransferWorker(engine, constants.DefaultBulkTimeout, logging.Default())
	frontend := NewTerminalFrontend()
	events := w.Run(worker.ImageTransferRequest{
		ID:        uuid.New(),
		ImageType: wiresahara.ImageID(flagImageID),
		ImagePath: flagImagePath,
		FileSize:  uint64(info.Size()),
	})

	for ev := range events {
		switch ev.Kind {
		case worker.EventChunkDone:
			frontend.OnProgress(int64(ev.Cumulative), info.Size(), "send-image")
		case worker.EventComplete:
			color.Green("image transfer complete (%d bytes)", ev.OutSize)
			return nil
		case worker.EventError:
			return ev.Err
		case worker.EventCancelled:
			return fmt.Errorf("image transfer cancelled")
		}
	}
	return nil
}

func runSaharaDumpMemory(cmd *cobra.Command, args []string) error {
	engine, tr, err := openSaharaEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	w := worker.NewMemoryReadWorker(engine.ReadMemory, engine.Poison, engine.Snapshot().MaxCommandPacketSize, constants.DefaultBulkTimeout, logging.Default())
	frontend := NewTerminalFrontend()
	events := w.Run(worker.MemoryReadRequest{
		ID:          uuid.New(),
		Address:     flagDumpAddress,
		Size:        flagDumpLength,
		StepSize:    constants.DefaultMemoryReadStepSize,
		OutFilePath: flagDumpOut,
	})

	for ev := range events {
		switch ev.Kind {
		case worker.EventChunkReady:
			frontend.OnProgress(int64(ev.Cumulative), int64(flagDumpLength), "dump-memory")
		case worker.EventComplete:
			color.Green("wrote %d bytes to %s", ev.OutSize, flagDumpOut)
			return nil
		case worker.EventError:
			return ev.Err
		case worker.EventCancelled:
			return fmt.Errorf("memory dump cancelled")
		}
	}
	return nil
}

// runSaharaDumpTable implements the supplemented memory-table-driven
// bulk dump: read the table the device announced in MEMORY_DEBUG,
// optionally save it raw, parse it, and queue one memory-read per
// named, non-zero-length region, confirming first for anything larger
// than --confirm-above-mib.
func runSaharaDumpTable(cmd *cobra.Command, args []string) error {
	engine, tr, err := openSaharaEngine()
	if err != nil {
		return err
	}
	defer tr.Close()

	if _, err := engine.WaitMemoryDebug(constants.DefaultControlTimeout); err != nil {
		return err
	}

	raw, err := engine.ReadMemoryTableRaw(constants.DefaultBulkTimeout)
	if err != nil {
		return err
	}
	if flagSaveTable != "" {
		if err := os.WriteFile(flagSaveTable, raw, 0o644); err != nil {
			return err
		}
		color.Green("saved raw memory table to %s", flagSaveTable)
	}

	entries, err := sahara.ParseMemoryTable(raw)
	if err != nil {
		return err
	}

	frontend := NewTerminalFrontend()
	threshold := uint32(flagLargeFileMiB) << 20
	var selected []wiresahara.MemoryTableEntry
	for _, e := range entries {
		if e.Length == 0 {
			continue
		}
		if threshold > 0 && e.Length > threshold {
			ok, err := frontend.Confirm(fmt.Sprintf("%s is %d bytes, dump anyway?", e.NameString(), e.Length))
			if err != nil {
				return err
			}
			if !ok {
				color.Yellow("skipping %s", e.NameString())
				continue
			}
		}
		selected = append(selected, e)
	}

	if err := os.MkdirAll(flagDumpDir, 0o755); err != nil {
		return err
	}
	q := worker.NewReadQueue()
	queued := worker.QueueMemoryTableDump(q, selected, flagDumpDir, constants.DefaultMemoryReadStepSize)

	w := worker.NewMemoryReadWorker(engine.ReadMemory, engine.Poison, engine.Snapshot().MaxCommandPacketSize, constants.DefaultBulkTimeout, logging.Default())
	for _, req := range queued {
		events := w.Run(req)
		for ev := range events {
			switch ev.Kind {
			case worker.EventChunkReady:
				frontend.OnProgress(int64(ev.Cumulative), int64(req.Size), filepath.Base(req.OutFilePath))
			case worker.EventError:
				return ev.Err
			case worker.EventCancelled:
				return fmt.Errorf("memory table dump cancelled")
			}
		}
	}
	color.Green("dumped %d regions to %s", len(queued), flagDumpDir)
	return nil
}
