package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balcaopos/balcao/internal/config"
	"github.com/balcaopos/balcao/internal/httpapi"
	"github.com/balcaopos/balcao/internal/store"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	Tenant string
	Kinds  []string
}

// NewPurgeCommand creates the purge command. This is the out-of-band
// administrative reset: it acts on the database directly and is never
// reachable from the sync exchange.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Destructively remove all records of the given kinds",
		Long: `Remove every record of the named entity kinds for one tenant.

Example:
  balcaod purge --kind sale
  balcaod purge --kind sale --kind customer --tenant loja2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.Kinds) == 0 {
				return fmt.Errorf("at least one --kind is required")
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.Purge(cmd.Context(), opts.Tenant, opts.Kinds)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d records\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Tenant, "tenant", httpapi.DefaultTenant, "tenant to purge")
	cmd.Flags().StringArrayVar(&opts.Kinds, "kind", nil, "entity kind to remove (repeatable)")

	return cmd
}
