package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"volunteercore/internal/core"
	"volunteercore/pkg/domain"
)

func printApplications(w io.Writer, output string, apps []core.ApplicationView) error {
	if output == outputJSON {
		return printJSON(w, apps)
	}
	if len(apps) == 0 {
		_, err := fmt.Fprintln(w, "No applications found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tREQUESTER\tPROGRAM\tORGANIZATION\tUPDATED")
	for _, a := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Status, a.RequesterName, a.ProgramTitle, a.OrganizationID, a.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printOutcome(w io.Writer, output string, out core.Outcome) error {
	if output == outputJSON {
		failures := make([]map[string]string, 0, len(out.Notifications.Failures))
		for _, f := range out.Notifications.Failures {
			failures = append(failures, map[string]string{"recipient_id": f.RecipientID, "error": f.Err.Error()})
		}
		return printJSON(w, map[string]any{
			"application": out.Application,
			"notifications": map[string]any{
				"event":     out.Notifications.Event,
				"attempted": out.Notifications.Attempted,
				"delivered": out.Notifications.Delivered,
				"failures":  failures,
			},
		})
	}
	a := out.Application
	fmt.Fprintf(w, "Application %s is %s (%s -> %s)\n", a.ID, a.Status, a.RequesterName, a.ProgramTitle)
	report := out.Notifications
	fmt.Fprintf(w, "Notified %d of %d recipients\n", len(report.Delivered), report.Attempted)
	if err := report.Err(); err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
	return nil
}

func printNotifications(w io.Writer, output string, items []domain.Notification) error {
	if output == outputJSON {
		return printJSON(w, items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No notifications.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTITLE\tAPPLICATION")
	for _, n := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.CreatedAt.Format(time.RFC3339), n.Title, n.RelatedEntityID)
	}
	return tw.Flush()
}
