package main

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image-file>",
		Short: "Upload a record photo for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
			if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
				header.Set("Content-Type", mimeType)
			}
			part, err := writer.CreatePart(header)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if err := writer.Close(); err != nil {
				return err
			}

			var resp uploadPayload
			if err := ctx.doRequest(http.MethodPost, "/api/v1/uploads", body, writer.FormDataContentType(), &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %s (%s, %d bytes)\n", filepath.Base(path), resp.DetectedMIME, resp.Size)
			fmt.Fprintf(out, "Preview id: %s\n", resp.PreviewID)
			return nil
		},
	}
}
