// Package cli wires the balcaod commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for balcaod.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "balcaod",
		Short: "balcao POS synchronization server",
		Long: `balcaod runs the synchronization and propagation core of the balcao
point-of-sale backend: the batch sync exchange for offline terminals, the
realtime event stream, and the cached metrics endpoints.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "balcao.yaml", "path to the yaml config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))

	return cmd
}
