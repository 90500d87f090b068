package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unionfuse/unionfuse/internal/branch"
	"github.com/unionfuse/unionfuse/internal/config"
	"github.com/unionfuse/unionfuse/internal/fuseops"
)

// mountFlags holds the "-o key=val,key=val" style options string plus the
// handful of config fields worth a dedicated flag, mirroring mergerfs'
// mount(8) invocation style (branches and mountpoint are positional, "-o"
// carries everything else).
type mountFlags struct {
	options      string
	minFreeSpace string
	moveOnENOSPC bool
}

func newMountCmd() *cobra.Command {
	var mf mountFlags
	cmd := &cobra.Command{
		Use:   "mount BRANCHES MOUNTPOINT",
		Short: "Mount a union of BRANCHES (a ':'-separated list) at MOUNTPOINT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMount(args[0], args[1], &mf)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&mf.options, "options", "o", "", "comma-separated mount options (k=v,k=v,flag)")
	fs.StringVar(&mf.minFreeSpace, "min-free-space", "", "global minimum free space (e.g. 4G)")
	fs.BoolVar(&mf.moveOnENOSPC, "move-on-enospc", false, "relocate an open file to another branch on ENOSPC")
	return cmd
}

func runMount(branchesSpec, mountpoint string, mf *mountFlags) error {
	opt := config.Default()
	opt.Branches = branchesSpec
	opt.MountPoint = mountpoint
	opt.LogLevel = logLevel
	opt.LogFormat = logFormat

	if cfgFile != "" {
		if err := config.LoadFile(opt, cfgFile); err != nil {
			return fmt.Errorf("unionfuse: loading config file: %w", err)
		}
	}
	if mf.options != "" {
		if err := config.ParseMountOptions(opt, mf.options); err != nil {
			return fmt.Errorf("unionfuse: parsing -o options: %w", err)
		}
	}
	if mf.minFreeSpace != "" {
		if err := config.ParseMountOptions(opt, "minfreespace="+mf.minFreeSpace); err != nil {
			return fmt.Errorf("unionfuse: parsing --min-free-space: %w", err)
		}
	}
	if mf.moveOnENOSPC {
		opt.MoveOnENOSPC = true
	}

	list, err := branch.Parse(opt.Branches, opt.MinFreeSpace)
	if err != nil {
		return fmt.Errorf("unionfuse: parsing branches: %w", err)
	}
	reg := branch.NewRegistry(list, opt.MinFreeSpace)

	log := newLogger()
	server, err := fuseops.Mount(mountpoint, opt, reg, log)
	if err != nil {
		return fmt.Errorf("unionfuse: mount: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("unmounting on signal")
		server.Unmount()
	}()

	server.Wait()
	return nil
}
