package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <note_id>",
		Short:   "Show a note with its actions and observations",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}
}

func runGet(cmd *cobra.Command, noteID string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/notes/"+url.PathEscape(noteID), nil)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	var bundle domain.NoteBundle
	if err := json.Unmarshal(resp.Data, &bundle); err != nil {
		return fmt.Errorf("failed to parse note: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, bundle)
	}
	printBundle(out, &bundle)
	return nil
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <note_id>",
		Short:   "Delete a note and its action items",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(cmd, args[0], outputJSON)
		},
	}
}

func runDelete(cmd *cobra.Command, noteID string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/notes/" + url.PathEscape(noteID)); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, map[string]string{"id": noteID, "status": "deleted"})
	}
	fmt.Fprintf(out, "Deleted note: %s\n", noteID)
	return nil
}

// TagsCmd creates the tags command.
func TagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runTags(cmd, outputJSON)
		},
	}
}

func runTags(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	var tags []string
	if err := json.Unmarshal(resp.Data, &tags); err != nil {
		return fmt.Errorf("failed to parse tags: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, tags)
	}
	for _, t := range tags {
		fmt.Fprintln(out, formatTags([]string{t}))
	}
	return nil
}
