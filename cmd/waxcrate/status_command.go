package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health healthPayload
			if err := ctx.getJSON("/healthz", &health); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color := shouldColorize(out)

			overall := colorize(health.Status, ansiGreen, color)
			if health.Status != "ok" {
				overall = colorize(health.Status, ansiYellow, color)
			}
			fmt.Fprintf(out, "Daemon: %s (%s)\n\n", overall, ctx.baseURL())

			fmt.Fprintln(out, renderTable(
				[]column{{name: "STATE"}, {name: "COUNT", rightAlign: true}},
				[][]string{
					{"uploaded", fmt.Sprint(health.Store.Uploaded)},
					{"ai_analyzed", fmt.Sprint(health.Store.Analyzed)},
					{"user_reviewed", fmt.Sprint(health.Store.Reviewed)},
					{"enriched", fmt.Sprint(health.Store.Enriched)},
					{"archived", fmt.Sprint(health.Store.Archived)},
					{"tombstones", fmt.Sprint(health.Store.Tombstones)},
				}))

			fmt.Fprintln(out)
			for _, st := range health.Stages {
				label := colorize("OK", ansiGreen, color)
				if !st.Ready {
					label = colorize("NOT READY", ansiRed, color)
					if st.Detail != "" {
						label += " " + st.Detail
					}
				}
				fmt.Fprintf(out, "  %-12s %s\n", st.Name+":", label)
			}
			return nil
		},
	}
}
