package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the Markdown export as a standalone HTML page
func HTML(bundle *domain.NoteBundle) (string, error) {
	var body bytes.Buffer
	if err := markdownRenderer.Convert([]byte(Markdown(bundle)), &body); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}

	return fmt.Sprintf(
		"<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(bundle.Note.Title), body.String(),
	), nil
}
