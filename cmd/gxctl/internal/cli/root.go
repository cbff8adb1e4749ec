// Package cli implements the gxctl command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var serverURL string

// NewRootCmd builds the gxctl root command and registers every subcommand.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gxctl",
		Short:        "Command-line client for glidexd",
		Long:         "gxctl drives a glidexd control plane over its HTTP API: create, start, stop, pause, delete, and attach to Firecracker micro-VMs.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "glidexd API server URL")

	root.AddCommand(
		newHealthCmd(),
		newListCmd(),
		newGetCmd(),
		newCreateCmd(),
		newStartCmd(),
		newStopCmd(),
		newPauseCmd(),
		newDeleteCmd(),
		newConsoleCmd(),
		newLogsCmd(),
	)

	return root
}
