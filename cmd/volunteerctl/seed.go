package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"volunteercore/internal/app"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load requesters, programs and administrators from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open fixtures: %w", err)
			}
			defer func() { _ = f.Close() }()
			fixtures, err := app.DecodeFixtures(f)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				counts, err := app.Seed(ctx, a.Store, fixtures)
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return printJSON(cmd.OutOrStdout(), counts)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d requesters, %d programs, %d administrators\n",
					counts.Requesters, counts.Programs, counts.Administrators)
				return nil
			})
		},
	}
}
