package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"volunteercore/internal/app"
	"volunteercore/internal/core"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <application-id>",
		Short: "Show one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				view, err := a.Service.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printApplications(cmd.OutOrStdout(), opts.output, []core.ApplicationView{view})
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var organization, program string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if organization != "" && program != "" {
				return fmt.Errorf("--organization and --program are mutually exclusive")
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var (
					apps []core.ApplicationView
					err  error
				)
				switch {
				case organization != "":
					apps, err = a.Service.ListByOrganization(ctx, organization)
				case program != "":
					apps, err = a.Service.ListByProgram(ctx, program)
				default:
					apps, err = a.Service.ListAll(ctx)
				}
				if err != nil {
					return err
				}
				return printApplications(cmd.OutOrStdout(), opts.output, apps)
			})
		},
	}

	cmd.Flags().StringVar(&organization, "organization", "", "Only applications to this organization's programs")
	cmd.Flags().StringVar(&program, "program", "", "Only applications to this program")
	return cmd
}
