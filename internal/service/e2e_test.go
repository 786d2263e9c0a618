package service

import (
	"context"
	"strings"
	"testing"

	"github.com/cloo-solutions/nocturne/internal/enrich"
	"github.com/cloo-solutions/nocturne/internal/kv"
	"github.com/cloo-solutions/nocturne/internal/pipeline"
	"github.com/cloo-solutions/nocturne/internal/store"
)

// scriptedModel answers each stage prompt with a canned response. The
// actions stage first replies with prose to exercise the strict retry.
type scriptedModel struct {
	actionCalls int
}

func (m *scriptedModel) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	switch {
	case strings.Contains(prompt, "Structured Note JSON"):
		return `{
			"title": "Sarah takes the login work",
			"key_takeaways": ["Sarah owns login", "Target is Friday", "Scope is login only"],
			"summary": "Sarah will handle the login feature and aims to finish by Friday.",
			"entities": {"people": ["Sarah"], "organizations": [], "products": []},
			"topic": "Engineering",
			"tags": ["login", "sarah", "sprint"]
		}`, nil
	case strings.Contains(prompt, "Extract crisp"):
		m.actionCalls++
		if m.actionCalls == 1 {
			return "Here are the action items you asked for.", nil
		}
		return `{"actions": [
			{"title": "Implement login", "owner": "Sarah", "due_date": null, "priority": "HIGH", "confidence": 1.4}
		]}`, nil
	default:
		return `{"persona": "Product Manager", "observations": [
			{"headline": "Pin down Friday", "detail": "Confirm which Friday and what done means."},
			{"headline": "Name a reviewer", "detail": "Ask someone to review the login flow before release."}
		]}`, nil
	}
}

func newEndToEndService(t *testing.T) (*NoteService, *store.Store) {
	t.Helper()

	client := enrich.NewClient(&scriptedModel{})
	st := store.New(kv.NewMemory())
	return NewNoteService(pipeline.NewOrchestrator(client), st), st
}
