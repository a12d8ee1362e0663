package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ventana",
	Short: "Ventana runs detection-gated acquisition sequences in chunks.",
	Long: `Ventana drives detection-gated entanglement attempts on a timing
core, recording detections chunk by chunk and persisting each chunk as it
completes.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Log at debug level")
}
