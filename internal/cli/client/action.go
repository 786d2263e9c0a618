package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// ToggleCmd creates the toggle command.
func ToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <action_id>",
		Short: "Mark an action item done, or open again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Post("/actions/"+url.PathEscape(args[0])+"/toggle", nil)
			if err != nil {
				return fmt.Errorf("failed to toggle action: %w", err)
			}
			return printActionResponse(cmd, resp, outputJSON)
		},
	}
}

// UpdateActionCmd creates the update-action command.
func UpdateActionCmd() *cobra.Command {
	var (
		title      string
		owner      string
		dueDate    string
		priority   string
		confidence float64
		status     string
	)

	cmd := &cobra.Command{
		Use:   "update-action <action_id>",
		Short: "Edit fields of an action item",
		Long: `Updates only the fields given as flags.

Examples:
  nocturne update-action <id> --owner Sam --due 2025-03-07
  nocturne update-action <id> --priority high
  nocturne update-action <id> --owner ""   # clear the owner`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			flags := cmd.Flags()

			var patch domain.ActionPatch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("owner") {
				patch.Owner = &owner
			}
			if flags.Changed("due") {
				patch.DueDate = &dueDate
			}
			if flags.Changed("priority") {
				p := domain.Priority(strings.ToLower(priority))
				patch.Priority = &p
			}
			if flags.Changed("confidence") {
				patch.Confidence = &confidence
			}
			if flags.Changed("status") {
				s := domain.ActionStatus(strings.ToLower(status))
				patch.Status = &s
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: pass at least one of --title, --owner, --due, --priority, --confidence, --status")
			}
			if err := patch.Validate(); err != nil {
				return err
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Patch("/actions/"+url.PathEscape(args[0]), patch)
			if err != nil {
				return fmt.Errorf("failed to update action: %w", err)
			}
			return printActionResponse(cmd, resp, outputJSON)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&owner, "owner", "", "New owner (empty clears it)")
	cmd.Flags().StringVar(&dueDate, "due", "", "New due date, YYYY-MM-DD (empty clears it)")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority: low, med or high")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "New confidence between 0 and 1")
	cmd.Flags().StringVar(&status, "status", "", "New status: open or done")

	return cmd
}

func printActionResponse(cmd *cobra.Command, resp *APIResponse, outputJSON bool) error {
	var action domain.ActionItem
	if err := json.Unmarshal(resp.Data, &action); err != nil {
		return fmt.Errorf("failed to parse action: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, action)
	}
	fmt.Fprintln(out, formatAction(action))
	return nil
}
