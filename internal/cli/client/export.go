package client

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// ExportCmd creates the export command.
func ExportCmd() *cobra.Command {
	var (
		format  string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "export <note_id>",
		Short: "Export a note as markdown, json, ics, mailto, html or vault",
		Long: `Renders a note in the chosen format and writes it to stdout or a file.

Examples:
  nocturne export <id> --format markdown
  nocturne export <id> --format ics --out followup.ics
  nocturne export <id> --format vault --out ~/Notes/standup.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], format, outFile)
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "Export format (markdown|json|ics|mailto|html|vault)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write to this file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, noteID, format, outFile string) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	body, _, err := api.Download("/notes/"+url.PathEscape(noteID)+"/export", url.Values{"format": {format}})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if outFile == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}

	if err := os.WriteFile(outFile, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", noteID, outFile)
	return nil
}
