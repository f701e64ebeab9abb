package main

import (
	"context"

	"github.com/spf13/cobra"

	"volunteercore/internal/app"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <application-id> <status>",
		Short: "Move an application to a new status",
		Long:  "Valid statuses are pending, approved, declined, cancelled and completed; only transitions allowed by the lifecycle policy succeed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Service.ChangeStatus(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), opts.output, out)
			})
		},
	}
}

func newWithdrawCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <application-id>",
		Short: "Cancel an application on behalf of its requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Service.Withdraw(ctx, args[0])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), opts.output, out)
			})
		},
	}
}
