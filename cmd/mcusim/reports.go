package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/mcusim/pkg/mcusim/config"
)

func newReportsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reports [run-id]",
		Short: "List stored monitor reports",
		Long: `Without arguments, lists the runs recorded in the sqlite report store.
With a run ID, prints every report of that run in sequence order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, flags)
			if err != nil {
				return err
			}
			if settings.Store.Driver != config.StoreSQLite {
				return errors.New("reports needs a sqlite store (--store sqlite --store-path FILE)")
			}

			store, err := openStore(settings.Store)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				for _, id := range runs {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			reports, err := store.List(ctx, args[0])
			if err != nil {
				return fmt.Errorf("list reports: %w", err)
			}
			if len(reports) == 0 {
				return fmt.Errorf("no reports for run %q", args[0])
			}
			headerColor.Fprintf(out, "run %s\n", args[0])
			for _, r := range reports {
				printReport(out, r)
			}
			return nil
		},
	}
}
