package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"volunteercore/internal/app"
)

func newInboxCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox <recipient-id>",
		Short: "List notifications retained for a recipient",
		Long:  "Requires a notifier that keeps delivered notifications (inbox or redis).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Inbox == nil {
					return fmt.Errorf("notifier %q does not retain notifications", a.Config.Notifier.Driver)
				}
				items, err := a.Inbox.List(ctx, args[0])
				if err != nil {
					return err
				}
				return printNotifications(cmd.OutOrStdout(), opts.output, items)
			})
		},
	}
}
