package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

type CaptureRequest struct {
	Transcript string `json:"transcript"`
}

// CaptureCmd creates the capture command.
func CaptureCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "capture [transcript]",
		Short: "Turn a transcript into a structured note",
		Long: `Sends a transcript through the enrichment pipeline and stores the result.

Examples:
  # Capture from an argument
  nocturne capture "Sarah will handle the login feature by Friday"

  # Capture from a file
  nocturne capture --file standup.txt

  # Capture from stdin
  pbpaste | nocturne capture`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			transcript, err := readTranscript(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runCapture(cmd, transcript, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the transcript from a file")

	return cmd
}

func readTranscript(args []string, file string, stdin io.Reader) (string, error) {
	var transcript string
	switch {
	case len(args) == 1:
		transcript = args[0]
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		transcript = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		transcript = string(data)
	}

	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("no transcript provided")
	}
	return transcript, nil
}

func runCapture(cmd *cobra.Command, transcript string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/notes", CaptureRequest{Transcript: transcript})
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
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
