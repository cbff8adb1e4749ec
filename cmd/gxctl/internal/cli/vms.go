package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check glidexd server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(serverURL).health(); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all VMs",
		RunE: func(cmd *cobra.Command, args []string) error {
			vms, err := newClient(serverURL).listVMs()
			if err != nil {
				return err
			}
			if len(vms) == 0 {
				fmt.Println("no VMs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATE\tVCPUS\tMEMORY")
			for _, vm := range vms {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d MiB\n", vm.ID, vm.Name, vm.State, vm.VCPUCount, vm.MemSizeMiB)
			}
			return w.Flush()
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name|id>",
		Short: "Show VM details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(serverURL)
			id, err := c.resolveVM(args[0])
			if err != nil {
				return err
			}
			vm, err := c.getVM(id)
			if err != nil {
				return err
			}
			fmt.Printf("ID:      %s\n", vm.ID)
			fmt.Printf("Name:    %s\n", vm.Name)
			fmt.Printf("State:   %s\n", vm.State)
			fmt.Printf("vCPUs:   %d\n", vm.VCPUCount)
			fmt.Printf("Memory:  %d MiB\n", vm.MemSizeMiB)
			return nil
		},
	}
}

func newCreateCmd() *cobra.Command {
	var (
		vcpuCount  int
		memSizeMiB int
		kernel     string
		rootfs     string
		kernelArgs string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := newClient(serverURL).createVM(createVMRequest{
				Name:            args[0],
				VCPUCount:       vcpuCount,
				MemSizeMiB:      memSizeMiB,
				KernelImagePath: kernel,
				RootfsPath:      rootfs,
				KernelArgs:      kernelArgs,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created VM %s (id %s, state %s)\n", vm.Name, vm.ID, vm.State)
			return nil
		},
	}

	home, _ := os.UserHomeDir()
	cmd.Flags().IntVar(&vcpuCount, "vcpus", 1, "number of vCPUs")
	cmd.Flags().IntVar(&memSizeMiB, "memory", 512, "memory size in MiB")
	cmd.Flags().StringVar(&kernel, "kernel", home+"/.glidex/vmlinux.bin", "path to kernel image")
	cmd.Flags().StringVar(&rootfs, "rootfs", home+"/.glidex/rootfs.ext4", "path to root filesystem image")
	cmd.Flags().StringVar(&kernelArgs, "kernel-args", "", "kernel boot arguments (defaults to glidexd's standard args)")

	return cmd
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <name|id>",
		Short: "Start a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transition(args[0], (*client).startVM)
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name|id>",
		Short: "Stop a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transition(args[0], (*client).stopVM)
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <name|id>",
		Short: "Pause a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transition(args[0], (*client).pauseVM)
		},
	}
}

// transition resolves nameOrID, applies op, and prints the resulting state.
func transition(nameOrID string, op func(*client, string) (*vmResponse, error)) error {
	c := newClient(serverURL)
	id, err := c.resolveVM(nameOrID)
	if err != nil {
		return err
	}
	vm, err := op(c, id)
	if err != nil {
		return err
	}
	fmt.Printf("VM %s is now %s\n", vm.Name, vm.State)
	return nil
}

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <name|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a VM",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(serverURL)
			id, err := c.resolveVM(args[0])
			if err != nil {
				return err
			}
			if !force {
				fmt.Printf("delete VM %s? [y/N]: ", args[0])
				var confirm string
				fmt.Scanln(&confirm)
				if confirm != "y" && confirm != "Y" {
					fmt.Println("cancelled")
					return nil
				}
			}
			if err := c.deleteVM(id); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}
