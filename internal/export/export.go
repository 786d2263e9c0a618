// Package export renders a NoteBundle into shareable formats. Every
// renderer is a pure function of the bundle.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// Format names an export format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCalendar Format = "ics"
	FormatEmail    Format = "mailto"
	FormatHTML     Format = "html"
	FormatVault    Format = "vault"
)

// Formats lists every supported format
var Formats = []Format{FormatMarkdown, FormatJSON, FormatCalendar, FormatEmail, FormatHTML, FormatVault}

// ParseFormat accepts a format name or a common alias
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "ics", "ical", "calendar":
		return FormatCalendar, nil
	case "mailto", "email":
		return FormatEmail, nil
	case "html":
		return FormatHTML, nil
	case "vault", "obsidian":
		return FormatVault, nil
	}
	return "", domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("unsupported export format: %s", s))
}

// Document is a rendered export
type Document struct {
	Content     string
	ContentType string
	Filename    string
}

// Render produces the document for a bundle in the given format
func Render(bundle *domain.NoteBundle, format Format) (*Document, error) {
	var (
		content string
		err     error
	)

	switch format {
	case FormatMarkdown:
		content = Markdown(bundle)
	case FormatJSON:
		content, err = JSON(bundle)
	case FormatCalendar:
		content, err = CalendarEvent(bundle)
	case FormatEmail:
		content = EmailDraft(bundle)
	case FormatHTML:
		content, err = HTML(bundle)
	case FormatVault:
		content, err = Vault(bundle)
	default:
		return nil, domain.ErrInvalidExportFormat
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Content:     content,
		ContentType: contentType(format),
		Filename:    filename(bundle, format),
	}, nil
}

// JSON renders the bundle as indented JSON
func JSON(bundle *domain.NoteBundle) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}
	return string(data), nil
}

func contentType(format Format) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatCalendar:
		return "text/calendar; charset=utf-8"
	case FormatEmail:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

func filename(bundle *domain.NoteBundle, format Format) string {
	base := slug(bundle.Note.Title)
	if base == "" {
		base = bundle.ID()
	}

	switch format {
	case FormatJSON:
		return base + ".json"
	case FormatCalendar:
		return base + ".ics"
	case FormatEmail:
		return base + ".txt"
	case FormatHTML:
		return base + ".html"
	default:
		return base + ".md"
	}
}

// slug lowercases s and collapses every run of non-alphanumerics into "-"
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
