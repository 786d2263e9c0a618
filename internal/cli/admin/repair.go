package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/config"
	"github.com/cloo-solutions/nocturne/internal/store"
)

// RepairIndexCmd returns the repair-index command
func RepairIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair-index",
		Short: "Drop dangling entries from the note index",
		Long: `Removes index entries whose note is missing or unreadable and action
pointers that no longer match a stored note. A corrupt index is rebuilt
from the stored notes, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			backend, closeBackend, err := OpenBackend(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer closeBackend()

			report, err := store.New(backend).RepairIndex(ctx)
			if err != nil {
				return fmt.Errorf("failed to repair index: %w", err)
			}
			return printRepairReport(cmd.OutOrStdout(), report, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func printRepairReport(w io.Writer, report *store.RepairReport, outputFormat string) error {
	if outputFormat == "json" {
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(jsonBytes))
		return nil
	}

	if !report.Changed() {
		fmt.Fprintln(w, "Index is consistent, nothing to repair.")
		return nil
	}
	if report.Rebuilt {
		fmt.Fprintln(w, "Index was unreadable and has been rebuilt.")
	}
	fmt.Fprintf(w, "Dropped %d dangling notes, removed %d stale action pointers.\n", len(report.DroppedIDs), report.StaleActions)
	for _, id := range report.DroppedIDs {
		fmt.Fprintf(w, "  - %s\n", id)
	}
	return nil
}
