package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

var (
	titleStyle = color.New(color.Bold)
	dimStyle   = color.New(color.Faint)
	doneStyle  = color.New(color.FgGreen)
	tagStyle   = color.New(color.FgCyan)

	priorityStyles = map[domain.Priority]*color.Color{
		domain.PriorityHigh:   color.New(color.FgRed, color.Bold),
		domain.PriorityMedium: color.New(color.FgYellow),
		domain.PriorityLow:    color.New(color.FgBlue),
	}
)

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func formatPriority(p domain.Priority) string {
	label := "[" + strings.ToUpper(string(p)) + "]"
	if style, ok := priorityStyles[p]; ok {
		return style.Sprint(label)
	}
	return label
}

func formatTags(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = tagStyle.Sprint("#" + t)
	}
	return strings.Join(out, " ")
}

func formatAction(a domain.ActionItem) string {
	mark := "[ ]"
	title := a.Title
	if a.Status == domain.ActionStatusDone {
		mark = doneStyle.Sprint("[x]")
		title = dimStyle.Sprint(title)
	}

	line := fmt.Sprintf("%s %s %s", mark, formatPriority(a.Priority), title)
	if a.Owner != nil {
		line += fmt.Sprintf(" (%s)", *a.Owner)
	}
	if a.DueDate != nil {
		line += " due " + *a.DueDate
	}
	return line + dimStyle.Sprintf("  %s", a.ID)
}

// printBundleLine writes the one-line list form of a note
func printBundleLine(w io.Writer, b *domain.NoteBundle) {
	open := 0
	for _, a := range b.Actions {
		if a.Status == domain.ActionStatusOpen {
			open++
		}
	}
	fmt.Fprintf(w, "%s  %s  %s\n",
		dimStyle.Sprint(b.Note.CreatedAt.Format("2006-01-02")),
		titleStyle.Sprint(b.Note.Title),
		formatTags(b.Note.Tags))
	fmt.Fprintf(w, "    %s · %d open actions · %s\n", b.Note.Topic, open, dimStyle.Sprint(b.ID()))
}

// printBundle writes the full human form of a note
func printBundle(w io.Writer, b *domain.NoteBundle) {
	fmt.Fprintln(w, titleStyle.Sprint(b.Note.Title))
	fmt.Fprintf(w, "%s · %s · %s\n", b.Note.CreatedAt.Format("2006-01-02 15:04"), b.Note.Topic, formatTags(b.Note.Tags))
	fmt.Fprintln(w, dimStyle.Sprint(b.ID()))

	if b.Note.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, b.Note.Summary)
	}

	if len(b.Note.KeyTakeaways) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Sprint("Key takeaways"))
		for _, t := range b.Note.KeyTakeaways {
			fmt.Fprintf(w, "  • %s\n", t)
		}
	}

	if len(b.Actions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Sprint("Action items"))
		for _, a := range b.Actions {
			fmt.Fprintf(w, "  %s\n", formatAction(a))
		}
	}

	if len(b.Expert.Observations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Sprintf("Expert observations (%s)", b.Expert.Persona))
		for _, o := range b.Expert.Observations {
			fmt.Fprintf(w, "  %s\n    %s\n", o.Headline, o.Detail)
		}
	}
}
