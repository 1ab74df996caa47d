package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scienceol/screenwake/internal/config"
	"github.com/scienceol/screenwake/internal/ui"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether a wake lock can be taken on this machine",
		Long: `Probes the platform's wake lock mechanism without acquiring anything.
Exits 0 when a wake lock is available and 2 when it is not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, l, err := setup(config.Overrides{})
			if err != nil {
				return err
			}

			ui.Banner(version)
			ui.KeyValue("Platform", l.Platform())
			if cfg.Path != "" {
				ui.KeyValue("Config", cfg.Path)
			}
			supported := l.IsSupported()
			ui.KeyValue("Supported", ui.YesNo(supported))
			ui.Separator()

			if !supported {
				ui.Warn("Screen wake lock is not supported on this system")
				return &exitError{code: exitUnsupported}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "supported")
			return nil
		},
	}
}
