package main

import (
	"context"

	"github.com/spf13/cobra"

	"volunteercore/internal/app"
	"volunteercore/internal/core"
)

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	var req core.SubmitRequest

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a volunteer application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Service.Submit(ctx, req)
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), opts.output, out)
			})
		},
	}

	cmd.Flags().StringVar(&req.RequesterID, "requester", "", "Requester id")
	cmd.Flags().StringVar(&req.ProgramID, "program", "", "Program id")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "Why the requester wants to join")
	_ = cmd.MarkFlagRequired("requester")
	_ = cmd.MarkFlagRequired("program")
	return cmd
}
