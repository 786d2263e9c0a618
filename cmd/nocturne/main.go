package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/nocturne/internal/cli"
	"github.com/cloo-solutions/nocturne/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nocturne",
		Short: "Nocturne CLI - Voice notes into structured notes and action items",
		Long: `Nocturne CLI captures voice-note transcripts and manages the enriched
notes, action items and expert observations stored by nocturned.

Environment variables:
  NOCTURNE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.CaptureCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.TagsCmd())
	rootCmd.AddCommand(client.ToggleCmd())
	rootCmd.AddCommand(client.UpdateActionCmd())
	rootCmd.AddCommand(client.ExportCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
