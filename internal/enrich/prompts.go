package enrich

import (
	"encoding/json"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

const systemInstruction = `You are Nocturne, a concise expert note-taker. Transform raw transcripts into clear notes, high-value action items, and expert observations. Be friendly, supportive, and authoritative. No hedging. Do not invent facts. Respond ONLY with valid JSON that matches the provided schema.`

const structureTask = `TASK: Produce Structured Note JSON. Title ≤ 60 chars. 3–6 key_takeaways. 3–8 tags (mix of topic/project/person). Avoid hallucinations.

JSON Schema:
{
  "title": "string (<=60 chars)",
  "key_takeaways": ["string (3-6 bullets)"],
  "summary": "string (<=200 words)",
  "entities": {
    "people": ["string"],
    "organizations": ["string"],
    "products": ["string"]
  },
  "topic": "string",
  "tags": ["string (3-8 total, mix of topic/project/person)"]
}`

const actionsTask = `TASK: Extract crisp, user-doable action items. Imperative phrasing. Infer owner/due_date only if explicit; else null. Add confidence 0–1. Max 8 items.

JSON Schema:
{
  "actions": [
    {
      "title": "string (imperative verb first)",
      "owner": "string|null",
      "due_date": "YYYY-MM-DD|null",
      "priority": "low|med|high",
      "confidence": 0.0
    }
  ]
}`

const observationsTask = `TASK: Choose best-fit persona. Return 2–4 observations (headline + 1-3 sentences each) with practical advice and pitfalls. Friendly-expert tone.

Available personas: {{personas}}

JSON Schema:
{
  "persona": "{{persona_enum}}",
  "observations": [
    { "headline": "string", "detail": "string" }
  ]
}`

// section is one labelled block of prompt context
type section struct {
	label string
	body  string
}

// render joins the shared instruction, the stage task, the context sections
// and the closing directive into one prompt.
func render(task string, sections []section, directive string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")
	b.WriteString(task)
	for _, s := range sections {
		b.WriteString("\n\n")
		b.WriteString(s.label)
		b.WriteString(":\n")
		b.WriteString(s.body)
	}
	b.WriteString("\n\n")
	b.WriteString(directive)
	return b.String()
}

func observationsTaskText() string {
	names := make([]string, len(domain.Personas))
	for i, p := range domain.Personas {
		names[i] = string(p)
	}
	return strings.NewReplacer(
		"{{personas}}", strings.Join(names, ", "),
		"{{persona_enum}}", strings.Join(names, "|"),
	).Replace(observationsTask)
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func structurePrompt(transcript string) string {
	return render(structureTask, []section{{"TRANSCRIPT", transcript}},
		"Return Structured Note JSON only.")
}

func structureRetryPrompt(transcript string) string {
	return render(structureTask, []section{{"TRANSCRIPT", transcript}},
		"Return only valid JSON matching the schema. No additional text or formatting.")
}

func actionsPrompt(transcript string, note domain.NoteFields) string {
	return render(actionsTask, []section{
		{"TRANSCRIPT", transcript},
		{"STRUCTURED NOTE", indentJSON(note)},
	}, "Extract action items and return JSON only.")
}

func actionsRetryPrompt(transcript string) string {
	return render(actionsTask, []section{{"TRANSCRIPT", transcript}},
		"Return only valid JSON with action items. No additional text.")
}

func observationsPrompt(note domain.NoteFields, actions []domain.ActionDraft) string {
	if actions == nil {
		actions = []domain.ActionDraft{}
	}
	return render(observationsTaskText(), []section{
		{"STRUCTURED NOTE", indentJSON(note)},
		{"ACTION ITEMS", indentJSON(actions)},
	}, "Choose the most appropriate persona and provide expert observations. Return JSON only.")
}

func observationsRetryPrompt(note domain.NoteFields) string {
	return render(observationsTaskText(), []section{
		{"TOPIC", note.Topic},
		{"TAGS", strings.Join(note.Tags, ", ")},
		{"SUMMARY", note.Summary},
	}, "Choose the best expert persona and provide 2-4 practical observations. Return only valid JSON.")
}
