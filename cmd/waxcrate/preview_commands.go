package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newPreviewsCommand(ctx *commandContext) *cobra.Command {
	previewsCmd := &cobra.Command{
		Use:   "previews",
		Short: "Inspect in-flight preview records",
	}
	previewsCmd.AddCommand(newPreviewsListCommand(ctx))
	previewsCmd.AddCommand(newPreviewsShowCommand(ctx))
	return previewsCmd
}

func newPreviewsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List preview records for the current owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Previews []previewPayload `json:"previews"`
			}
			if err := ctx.getJSON("/api/v1/previews", &resp); err != nil {
				return err
			}

			rows := make([][]string, 0, len(resp.Previews))
			for _, p := range resp.Previews {
				rows = append(rows, []string{
					p.PreviewID,
					p.Status,
					displayField(p.Fields.Artist),
					displayField(p.Fields.Album),
					formatConfidence(p.Confidence),
					p.AnalysisModel,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{
					{name: "ID"}, {name: "STATUS"}, {name: "ARTIST"}, {name: "ALBUM"},
					{name: "CONF", rightAlign: true}, {name: "MODEL"},
				}, rows))
			return nil
		},
	}
}

func newPreviewsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <preview-id>",
		Short: "Show one preview record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p previewPayload
			if err := ctx.getJSON("/api/v1/previews/"+url.PathEscape(args[0]), &p); err != nil {
				return err
			}
			printPreview(cmd, p)
			return nil
		},
	}
}

func printPreview(cmd *cobra.Command, p previewPayload) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Preview %s  [%s]\n", p.PreviewID, p.Status)
	fmt.Fprintf(out, "  Artist:      %s\n", displayField(p.Fields.Artist))
	fmt.Fprintf(out, "  Album:       %s\n", displayField(p.Fields.Album))
	fmt.Fprintf(out, "  Label:       %s\n", displayField(p.Fields.Label))
	fmt.Fprintf(out, "  Year:        %s\n", displayField(p.Fields.Year))
	fmt.Fprintf(out, "  Catalog #:   %s\n", displayField(p.Fields.CatalogNumber))
	fmt.Fprintf(out, "  Format:      %s\n", displayField(p.Fields.Format))
	fmt.Fprintf(out, "  Confidence:  %s (%s, %d cents)\n",
		formatConfidence(p.Confidence), p.AnalysisModel, p.EstimatedCost)
	if p.EnrichmentSource != "" {
		fmt.Fprintf(out, "  Enriched by: %s\n", p.EnrichmentSource)
	}
	if p.AnalysisError != "" {
		fmt.Fprintf(out, "  Analysis error: %s\n", p.AnalysisError)
	}
	if p.ErrorMessage != "" {
		fmt.Fprintf(out, "  Last error:  %s\n", p.ErrorMessage)
	}
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var corrections fieldsPayload

	cmd := &cobra.Command{
		Use:   "review <preview-id>",
		Short: "Confirm an analyzed preview, optionally correcting fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p previewPayload
			path := "/api/v1/previews/" + url.PathEscape(args[0]) + "/review"
			if err := ctx.postJSON(path, corrections, &p); err != nil {
				return err
			}
			printPreview(cmd, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&corrections.Artist, "artist", "", "Correct the artist")
	cmd.Flags().StringVar(&corrections.Album, "album", "", "Correct the album")
	cmd.Flags().StringVar(&corrections.Title, "title", "", "Correct the title")
	cmd.Flags().StringVar(&corrections.Label, "label", "", "Correct the label")
	cmd.Flags().StringVar(&corrections.Year, "year", "", "Correct the release year")
	cmd.Flags().StringVar(&corrections.CatalogNumber, "catalog", "", "Correct the catalog number")
	cmd.Flags().StringVar(&corrections.Country, "country", "", "Correct the country")
	cmd.Flags().StringVar(&corrections.Format, "format", "", "Correct the format")
	return cmd
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var forceExpensive bool

	cmd := &cobra.Command{
		Use:   "enrich <preview-id>",
		Short: "Run the enrichment cascade on a reviewed preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/previews/" + url.PathEscape(args[0]) + "/enrich"
			if forceExpensive {
				path += "?force_expensive=1"
			}
			var p previewPayload
			if err := ctx.postJSON(path, nil, &p); err != nil {
				return err
			}
			printPreview(cmd, p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceExpensive, "force-expensive", false,
		"Skip the cache and catalog, go straight to the vision service")
	return cmd
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <preview-id>",
		Short: "Commit a preview to the durable archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp archivePayload
			path := "/api/v1/previews/" + url.PathEscape(args[0]) + "/archive"
			if err := ctx.postJSON(path, nil, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resp.Created {
				fmt.Fprintf(out, "Archived as record %s\n", resp.RecordID)
			} else {
				fmt.Fprintf(out, "Already archived as record %s\n", resp.RecordID)
			}
			return nil
		},
	}
}
