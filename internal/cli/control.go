package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unionfuse/unionfuse/internal/fuseops"
)

// newControlCmd wires the userspace half of §6's control-plane ioctls: a
// small CLI that talks to an already-mounted unionfuse, the same way an
// LD_PRELOAD shim would, without needing its own ioctl wrapper.
func newControlCmd() *cobra.Command {
	control := &cobra.Command{
		Use:   "control",
		Short: "Query or change a running mount's configuration",
	}

	getOpt := &cobra.Command{
		Use:   "get-option MOUNTPOINT KEY",
		Args:  cobra.ExactArgs(2),
		Short: "Print the current value of one mount option",
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := fuseops.GetOption(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}

	setOpt := &cobra.Command{
		Use:   "set-option MOUNTPOINT KEY VALUE",
		Args:  cobra.ExactArgs(3),
		Short: "Change one mount option on a running mount",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fuseops.SetOption(args[0], args[1], args[2])
		},
	}

	getConfig := &cobra.Command{
		Use:   "get-config MOUNTPOINT",
		Args:  cobra.ExactArgs(1),
		Short: "Dump every mount option as key=value lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := fuseops.GetConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dump)
			return nil
		},
	}

	fileInfo := &cobra.Command{
		Use:   "file-info PATH",
		Args:  cobra.ExactArgs(1),
		Short: "Report the backing branch and path for an open file under the mount",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := fuseops.FileInfo(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info)
			return nil
		},
	}

	control.AddCommand(getOpt, setOpt, getConfig, fileInfo)
	return control
}
