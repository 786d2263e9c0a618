package export

import (
	"strings"
	"time"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

const (
	calendarProdID  = "-//Nocturne Notes//EN"
	calendarUIDHost = "nocturne-notes.app"
	icsTimeLayout   = "20060102T150405Z"
	eventDuration   = time.Hour
)

// CalendarEvent renders a VEVENT for the first action with a due date. It
// returns domain.ErrNoDueDate when no action has one.
func CalendarEvent(bundle *domain.NoteBundle) (string, error) {
	var due *domain.ActionItem
	for i := range bundle.Actions {
		if d := bundle.Actions[i].DueDate; d != nil && *d != "" {
			due = &bundle.Actions[i]
			break
		}
	}
	if due == nil {
		return "", domain.ErrNoDueDate
	}

	start, err := time.Parse("2006-01-02", *due.DueDate)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid due date "+*due.DueDate, err)
	}
	end := start.Add(eventDuration)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + calendarProdID,
		"BEGIN:VEVENT",
		"DTSTART:" + start.UTC().Format(icsTimeLayout),
		"DTEND:" + end.UTC().Format(icsTimeLayout),
		"SUMMARY:" + escapeText(due.Title),
		"DESCRIPTION:" + escapeText(bundle.Note.Summary),
		"UID:" + bundle.Note.ID + "@" + calendarUIDHost,
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n"), nil
}

var icsEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// escapeText applies iCalendar TEXT escaping
func escapeText(s string) string {
	return icsEscaper.Replace(s)
}
