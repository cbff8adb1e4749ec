package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logs <name|id>",
		Aliases: []string{"log"},
		Short:   "Print a VM's serial console log",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(serverURL)
			id, err := c.resolveVM(args[0])
			if err != nil {
				return err
			}
			info, err := c.consoleInfo(id)
			if err != nil {
				return err
			}

			f, err := os.Open(info.LogPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					fmt.Println("log file not found; start the VM first")
					return nil
				}
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			empty := true
			for scanner.Scan() {
				fmt.Println(scanner.Text())
				empty = false
			}
			if empty {
				fmt.Println("log file is empty; start the VM to see console output")
			}
			return scanner.Err()
		},
	}
}
