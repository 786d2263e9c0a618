// Package sanitize coerces untrusted model output into bounded domain records.
//
// Every function accepts the value produced by json.Unmarshal into an
// interface{} (maps, slices, float64, string, bool, nil) and never fails:
// missing or mistyped fields fall back to fixed defaults.
package sanitize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

// Defaults substituted when the model leaves a field out
const (
	FallbackTakeaway      = "Unable to extract key takeaways"
	FallbackTag           = "general"
	DefaultHeadline       = "Key Insight"
	DefaultDetail         = "Consider reviewing this area for improvement."
	FallbackHeadline      = "Review Needed"
	FallbackDetail        = "This content would benefit from expert analysis and structured follow-up."
	DefaultPersona        = domain.PersonaProductManager
	DefaultActionPriority = domain.PriorityMedium
)

// Note converts a parsed structure-stage response into NoteFields
func Note(raw any) domain.NoteFields {
	obj := asObject(raw)
	entities := asObject(obj["entities"])

	return domain.NoteFields{
		Title:        truncate(stringOr(obj["title"], ""), domain.MaxTitleLength),
		KeyTakeaways: stringList(obj["key_takeaways"], domain.MaxKeyTakeaways, FallbackTakeaway),
		Summary:      truncate(stringOr(obj["summary"], ""), domain.MaxSummaryLength),
		Entities: domain.Entities{
			People:        stringList(entities["people"], domain.MaxEntities, ""),
			Organizations: stringList(entities["organizations"], domain.MaxEntities, ""),
			Products:      stringList(entities["products"], domain.MaxEntities, ""),
		},
		Topic: stringOr(obj["topic"], domain.DefaultTopic),
		Tags:  stringList(obj["tags"], domain.MaxTags, FallbackTag),
	}
}

// Actions converts a parsed actions-stage response into at most eight drafts.
// It accepts either the {"actions": [...]} envelope or the bare array.
func Actions(raw any) []domain.ActionDraft {
	if obj, ok := raw.(map[string]any); ok {
		raw = obj["actions"]
	}
	items, ok := raw.([]any)
	if !ok {
		return []domain.ActionDraft{}
	}
	if len(items) > domain.MaxActionsPerNote {
		items = items[:domain.MaxActionsPerNote]
	}

	out := make([]domain.ActionDraft, 0, len(items))
	for _, item := range items {
		out = append(out, Action(item))
	}
	return out
}

// Action converts a single untrusted action object
func Action(raw any) domain.ActionDraft {
	obj := asObject(raw)

	priority := domain.Priority(stringOr(obj["priority"], ""))
	if !priority.IsValid() {
		priority = DefaultActionPriority
	}

	return domain.ActionDraft{
		Title:      stringOr(obj["title"], domain.DefaultActionTitle),
		Owner:      owner(obj["owner"]),
		DueDate:    dueDate(obj["due_date"]),
		Priority:   priority,
		Confidence: Confidence(obj["confidence"]),
	}
}

// Confidence coerces v to a number in [0,1], defaulting to 0.5 when v is
// absent or not a finite number.
func Confidence(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return domain.DefaultConfidence
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return domain.DefaultConfidence
		}
		f = parsed
	case bool:
		if val {
			f = 1
		}
	default:
		return domain.DefaultConfidence
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.DefaultConfidence
	}
	return math.Max(0, math.Min(1, f))
}

// Observations converts a parsed observations-stage response
func Observations(raw any) domain.ObservationSet {
	obj := asObject(raw)

	persona := domain.Persona(stringOr(obj["persona"], ""))
	if !persona.IsValid() {
		persona = DefaultPersona
	}

	set := domain.ObservationSet{Persona: persona}
	items, ok := obj["observations"].([]any)
	if ok {
		if len(items) > domain.MaxObservations {
			items = items[:domain.MaxObservations]
		}
		for _, item := range items {
			entry := asObject(item)
			set.Observations = append(set.Observations, domain.Observation{
				Headline: stringOr(entry["headline"], DefaultHeadline),
				Detail:   stringOr(entry["detail"], DefaultDetail),
			})
		}
	}
	if len(set.Observations) == 0 {
		set.Observations = []domain.Observation{{Headline: FallbackHeadline, Detail: FallbackDetail}}
	}
	return set
}

func asObject(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// stringOr stringifies v, returning def for absent or falsy values
func stringOr(v any, def string) string {
	switch val := v.(type) {
	case nil:
		return def
	case string:
		if val == "" {
			return def
		}
		return val
	case bool:
		if !val {
			return def
		}
		return "true"
	case float64:
		if val == 0 || math.IsNaN(val) {
			return def
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return stringify(val)
	}
}

// stringify renders any JSON value as text. Nested values keep their JSON form.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// stringList stringifies the non-blank elements of an array, keeping at
// most limit of them. An array is kept as given even when it ends up empty;
// anything else yields [fallback], or an empty list when fallback is empty.
func stringList(v any, limit int, fallback string) []string {
	items, ok := v.([]any)
	if !ok {
		if fallback != "" {
			return []string{fallback}
		}
		return []string{}
	}

	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if s := strings.TrimSpace(stringify(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func owner(v any) *string {
	s := strings.TrimSpace(stringOr(v, ""))
	switch strings.ToLower(s) {
	case "", "unknown", "null", "none", "n/a":
		return nil
	}
	return &s
}

func dueDate(v any) *string {
	s, ok := v.(string)
	if !ok || !domain.IsValidDueDate(s) {
		return nil
	}
	return &s
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
