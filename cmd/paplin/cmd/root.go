package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the CLI and server version.
const Version = "1.0.0"

var (
	cfgFile string
	envFile string
	armID   string
)

var rootCmd = &cobra.Command{
	Use:   "paplin",
	Short: "paplin - concurrent move sequencing for USB robotic arms",
	Long: `paplin plays timed, concurrent joint movements on a USB robotic arm.

Concurrent requests such as "raise the shoulder for 500ms while closing the
grip for 300ms" are folded into one ordered sequence of combined commands
and played back one step at a time.

Commands:
  serve       - HTTP API and telemetry stream
  move        - one motion for a duration
  concurrent  - several motions at once
  light       - switch the indicator light
  stop        - halt the arm and switch the light off
  motions     - list motion names`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("paplin", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $PAPLIN_CONFIG or ./paplin.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&armID, "arm", "", "arm id (default: first configured arm)")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
