package export

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

const createdLayout = "2006-01-02"

// Markdown renders the bundle as a Markdown document
func Markdown(bundle *domain.NoteBundle) string {
	var b strings.Builder
	writeMarkdownBody(&b, bundle, true)
	return b.String()
}

func writeMarkdownBody(b *strings.Builder, bundle *domain.NoteBundle, withHeader bool) {
	note := bundle.Note

	if withHeader {
		fmt.Fprintf(b, "# %s\n\n", note.Title)
		fmt.Fprintf(b, "**Created:** %s\n", note.CreatedAt.UTC().Format(createdLayout))
		fmt.Fprintf(b, "**Topic:** %s\n", note.Topic)
		fmt.Fprintf(b, "**Tags:** %s\n\n", strings.Join(note.Tags, ", "))
	}

	fmt.Fprintf(b, "## Summary\n\n%s\n\n", note.Summary)

	b.WriteString("## Key Takeaways\n\n")
	for _, t := range note.KeyTakeaways {
		fmt.Fprintf(b, "- %s\n", t)
	}
	b.WriteString("\n")

	if len(bundle.Actions) > 0 {
		b.WriteString("## Action Items\n\n")
		for _, a := range bundle.Actions {
			b.WriteString(actionLine(a))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "## Expert Observations (%s)\n\n", bundle.Expert.Persona)
	for _, o := range bundle.Expert.Observations {
		fmt.Fprintf(b, "### %s\n\n%s\n\n", o.Headline, o.Detail)
	}

	e := note.Entities
	if len(e.People) > 0 || len(e.Organizations) > 0 || len(e.Products) > 0 {
		b.WriteString("## Mentioned Entities\n\n")
		if len(e.People) > 0 {
			fmt.Fprintf(b, "**People:** %s\n\n", strings.Join(e.People, ", "))
		}
		if len(e.Organizations) > 0 {
			fmt.Fprintf(b, "**Organizations:** %s\n\n", strings.Join(e.Organizations, ", "))
		}
		if len(e.Products) > 0 {
			fmt.Fprintf(b, "**Products:** %s\n\n", strings.Join(e.Products, ", "))
		}
	}
}

func actionLine(a domain.ActionItem) string {
	status := "⬜"
	if a.Status == domain.ActionStatusDone {
		status = "✅"
	}

	line := fmt.Sprintf("%s **[%s]** %s", status, strings.ToUpper(string(a.Priority)), a.Title)
	if a.Owner != nil && *a.Owner != "" {
		line += fmt.Sprintf(" (%s)", *a.Owner)
	}
	if a.DueDate != nil && *a.DueDate != "" {
		line += " - Due: " + *a.DueDate
	}
	return line
}
