package export

import (
	"net/url"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// EmailDraft renders a mailto: URI sharing the note's summary, takeaways
// and actions.
func EmailDraft(bundle *domain.NoteBundle) string {
	note := bundle.Note

	var body strings.Builder
	body.WriteString("Hi,\n\nI wanted to share some insights from my recent notes:\n\n")
	body.WriteString(note.Summary)
	body.WriteString("\n\nKey takeaways:\n")
	for i, t := range note.KeyTakeaways {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString("• " + t)
	}
	body.WriteString("\n\n")

	if len(bundle.Actions) > 0 {
		body.WriteString("Action items:\n")
		for i, a := range bundle.Actions {
			if i > 0 {
				body.WriteString("\n")
			}
			body.WriteString("• " + a.Title)
			if a.Owner != nil && *a.Owner != "" {
				body.WriteString(" (" + *a.Owner + ")")
			}
		}
		body.WriteString("\n\n")
	}
	body.WriteString("Best regards")

	return "mailto:?subject=" + encodeComponent(note.Title) + "&body=" + encodeComponent(body.String())
}

// encodeComponent percent-encodes s, spaces included
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
