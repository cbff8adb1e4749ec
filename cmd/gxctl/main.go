// Command gxctl is the command-line client for glidexd.
package main

import (
	"os"

	"github.com/onkernel/glidex/cmd/gxctl/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
