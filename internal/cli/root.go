package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openpst/go-qcboot/internal/logging"
)

var (
	flagPort    string
	flagBaud    int
	flagVerbose bool

	cfg *Config
)

var rootCmd = &cobra.Command{
	Use:   "qcboot",
	Short: "Sahara / Streaming DLOAD host driver",
	Long: `qcboot drives Qualcomm EDL devices through the Sahara and Streaming
DLOAD boot/recovery protocols over a serial transport: image upload,
memory reads, and Streaming DLOAD's unlock/mode/partition-table
operations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		if flagPort == "" {
			flagPort = cfg.Port
		}
		if flagBaud == 0 {
			flagBaud = cfg.Baud
		}

		logConfig := logging.DefaultConfig()
		if flagVerbose {
			logConfig.Level = logging.LevelDebug
		}
		logging.SetDefault(logging.NewLogger(logConfig))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "serial port path (defaults to config)")
	rootCmd.PersistentFlags().IntVar(&flagBaud, "baud", 0, "baud rate (defaults to config, then 115200)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(saharaCmd)
	rootCmd.AddCommand(dloadCmd)
}

// Execute runs the root command, returning the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		color.Red("error: %v", err)
		return exitCodeForErr(err)
	}
	return ExitSuccess
}

func requirePort() error {
	if flagPort == "" {
		return &usageError{msg: "no --port given and none configured"}
	}
	return nil
}

// usageError marks an argument-validation failure distinctly from a
// protocol/transport error, so Execute can map it to ExitInvalidArgs
// even though it never touches the wire.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func exitCodeForErr(err error) int {
	if _, ok := err.(*usageError); ok {
		return ExitInvalidArgs
	}
	return ExitCodeFor(err)
}
