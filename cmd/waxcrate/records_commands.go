package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Browse the durable archive",
	}
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived records for the current owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Records []recordPayload `json:"records"`
			}
			if err := ctx.getJSON("/api/v1/records", &resp); err != nil {
				return err
			}

			rows := make([][]string, 0, len(resp.Records))
			for _, rec := range resp.Records {
				rows = append(rows, []string{
					rec.RecordID,
					displayField(rec.Fields.Artist),
					displayField(rec.Fields.Album),
					displayField(rec.Fields.Label),
					rec.Fields.Year,
					rec.EnrichmentSource,
					rec.ArchivedAt.Format("2006-01-02"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{
					{name: "ID"}, {name: "ARTIST"}, {name: "ALBUM"}, {name: "LABEL"},
					{name: "YEAR", rightAlign: true}, {name: "SOURCE"}, {name: "ARCHIVED"},
				}, rows))
			return nil
		},
	}
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show one archived record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec recordPayload
			if err := ctx.getJSON("/api/v1/records/"+url.PathEscape(args[0]), &rec); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Record %s\n", rec.RecordID)
			fmt.Fprintf(out, "  Artist:      %s\n", displayField(rec.Fields.Artist))
			fmt.Fprintf(out, "  Album:       %s\n", displayField(rec.Fields.Album))
			fmt.Fprintf(out, "  Label:       %s\n", displayField(rec.Fields.Label))
			fmt.Fprintf(out, "  Year:        %s\n", displayField(rec.Fields.Year))
			fmt.Fprintf(out, "  Catalog #:   %s\n", displayField(rec.Fields.CatalogNumber))
			fmt.Fprintf(out, "  Format:      %s\n", displayField(rec.Fields.Format))
			fmt.Fprintf(out, "  Confidence:  %s (%s)\n", formatConfidence(rec.Confidence), rec.AnalysisModel)
			fmt.Fprintf(out, "  Enrichment:  %s\n", rec.EnrichmentSource)
			fmt.Fprintf(out, "  Archived:    %s\n", rec.ArchivedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "  Preview id:  %s\n", rec.PreviewID)
			return nil
		},
	}
}
