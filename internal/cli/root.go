// Package cli assembles the unionfuse command tree: mount, version, and
// control (the userspace half of the control-plane ioctls).
//
// Grounded on GoogleCloudPlatform-gcsfuse/cmd/root.go's layering of cobra
// persistent flags over an optional viper config file, generalized to
// this module's internal/config.Options instead of gcsfuse's cfg.Config.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "unionfuse",
		Short:         "A policy-driven union filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML/TOML/JSON config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text, json)")

	root.AddCommand(newMountCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newControlCmd())
	return root
}

// Execute runs the unionfuse command tree; it is the program's only entry
// point, called from cmd/unionfuse/main.go.
func Execute() error {
	return newRootCmd().Execute()
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(lvl)
	}
	if logFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
