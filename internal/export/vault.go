package export

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// vaultFrontmatter is the YAML header of a vault note
type vaultFrontmatter struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Topic   string   `yaml:"topic"`
	Tags    []string `yaml:"tags"`
	Created string   `yaml:"created"`
	Persona string   `yaml:"persona"`
	People  []string `yaml:"people,omitempty"`
}

// Vault renders the bundle as a Markdown file with YAML frontmatter, the
// layout used by note vaults such as Obsidian.
func Vault(bundle *domain.NoteBundle) (string, error) {
	note := bundle.Note
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}

	front, err := yaml.Marshal(vaultFrontmatter{
		ID:      note.ID,
		Title:   note.Title,
		Topic:   note.Topic,
		Tags:    tags,
		Created: note.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Persona: string(bundle.Expert.Persona),
		People:  note.Entities.People,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", note.Title)
	writeMarkdownBody(&b, bundle, false)
	return b.String(), nil
}
