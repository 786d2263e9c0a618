package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// ListAPIResponse represents the list API response.
type ListAPIResponse struct {
	Items   []*domain.NoteBundle `json:"items"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

type listOptions struct {
	query  string
	tags   []string
	limit  int
	cursor string
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List notes, most recent first",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, opts, outputJSON)
		},
	}

	addListFlags(cmd, &opts)

	return cmd
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes by title, summary, takeaways, tags and entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			opts.query = args[0]
			return runList(cmd, opts, outputJSON)
		},
	}

	addListFlags(cmd, &opts)

	return cmd
}

func addListFlags(cmd *cobra.Command, opts *listOptions) {
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Only notes carrying any of these tags")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&opts.cursor, "cursor", "", "Pagination cursor from previous response")
}

func (o listOptions) values() url.Values {
	q := url.Values{}
	if o.query != "" {
		q.Set("q", o.query)
	}
	for _, t := range o.tags {
		q.Add("tag", t)
	}
	if o.limit > 0 {
		q.Set("limit", strconv.Itoa(o.limit))
	}
	if o.cursor != "" {
		q.Set("cursor", o.cursor)
	}
	return q
}

func runList(cmd *cobra.Command, opts listOptions, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/notes", opts.values())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ListAPIResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, listResp)
	}

	if len(listResp.Items) == 0 {
		fmt.Fprintln(out, "No notes found.")
		return nil
	}

	for _, b := range listResp.Items {
		printBundleLine(out, b)
	}
	if listResp.HasMore {
		fmt.Fprintf(out, "\nMore results: --cursor %s\n", listResp.Cursor)
	}
	return nil
}
