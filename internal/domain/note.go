package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Bounds applied to model-produced records
const (
	MaxTitleLength    = 60
	MaxSummaryLength  = 400
	MaxKeyTakeaways   = 6
	MaxTags           = 8
	MaxEntities       = 10
	MaxActionsPerNote = 8
	MaxObservations   = 4
)

// DefaultTopic is used when the model does not name a topic
const DefaultTopic = "General"

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValidDueDate reports whether s has the YYYY-MM-DD shape
func IsValidDueDate(s string) bool {
	return dueDatePattern.MatchString(s)
}

// Entities groups the named things mentioned in a transcript
type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Products      []string `json:"products"`
}

// NoteFields are the parts of a StructuredNote produced by the structure stage
type NoteFields struct {
	Title        string   `json:"title"`
	KeyTakeaways []string `json:"key_takeaways"`
	Summary      string   `json:"summary"`
	Entities     Entities `json:"entities"`
	Topic        string   `json:"topic"`
	Tags         []string `json:"tags"`
}

// StructuredNote is the note produced from one captured transcript.
// ID, Transcript and CreatedAt never change after creation.
type StructuredNote struct {
	ID string `json:"id"`
	NoteFields
	Transcript string    `json:"transcript"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Priority of an action item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "med"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is one of the known priorities
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ActionStatus is the completion state of an action item
type ActionStatus string

const (
	ActionStatusOpen ActionStatus = "open"
	ActionStatusDone ActionStatus = "done"
)

// IsValid reports whether s is one of the known statuses
func (s ActionStatus) IsValid() bool {
	return s == ActionStatusOpen || s == ActionStatusDone
}

// Toggle returns the opposite status
func (s ActionStatus) Toggle() ActionStatus {
	if s == ActionStatusDone {
		return ActionStatusOpen
	}
	return ActionStatusDone
}

// DefaultActionTitle is used when the model omits an action title
const DefaultActionTitle = "Review and follow up"

// DefaultConfidence is used when the model's confidence is not a finite number
const DefaultConfidence = 0.5

// ActionDraft is an action item as produced by the actions stage, before it
// is attached to a note.
type ActionDraft struct {
	Title      string   `json:"title"`
	Owner      *string  `json:"owner"`
	DueDate    *string  `json:"due_date"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidence"`
}

// ActionItem is an action owned by exactly one NoteBundle
type ActionItem struct {
	ID     string `json:"id"`
	NoteID string `json:"noteId"`
	ActionDraft
	Status ActionStatus `json:"status"`
}

// Persona is the expert voice chosen for a note's observations
type Persona string

const (
	PersonaProductManager Persona = "Product Manager"
	PersonaSalesCoach     Persona = "Sales Coach"
	PersonaFitnessCoach   Persona = "Fitness Coach"
	PersonaClinicalOpsPM  Persona = "Clinical Ops PM"
	PersonaParentingCoach Persona = "Parenting Coach"
)

// Personas lists every persona in prompt order
var Personas = []Persona{
	PersonaProductManager,
	PersonaSalesCoach,
	PersonaFitnessCoach,
	PersonaClinicalOpsPM,
	PersonaParentingCoach,
}

// IsValid reports whether p is one of the fixed personas
func (p Persona) IsValid() bool {
	for _, known := range Personas {
		if p == known {
			return true
		}
	}
	return false
}

// Observation is one persona-flavoured insight
type Observation struct {
	Headline string `json:"headline"`
	Detail   string `json:"detail"`
}

// ObservationSet is the output of the observations stage
type ObservationSet struct {
	Persona      Persona       `json:"persona"`
	Observations []Observation `json:"observations"`
}

// ExpertObservation is the observation set attached to a note
type ExpertObservation struct {
	NoteID string `json:"noteId"`
	ObservationSet
}

// NoteBundle is the unit of persistence: one note, its actions and its
// expert observation.
type NoteBundle struct {
	Note    StructuredNote    `json:"note"`
	Actions []ActionItem      `json:"actions"`
	Expert  ExpertObservation `json:"expert"`
}

// ID returns the identifier of the bundle's note
func (b *NoteBundle) ID() string {
	return b.Note.ID
}

// FindAction returns the index of the action with the given id, or -1
func (b *NoteBundle) FindAction(actionID string) int {
	for i := range b.Actions {
		if b.Actions[i].ID == actionID {
			return i
		}
	}
	return -1
}

// ValidateBundle checks the structural invariants a bundle must hold before
// it is persisted.
func ValidateBundle(b *NoteBundle) error {
	if b == nil {
		return fmt.Errorf("bundle cannot be nil")
	}
	if b.Note.ID == "" {
		return fmt.Errorf("bundle note ID is required")
	}
	if len(b.Actions) > MaxActionsPerNote {
		return fmt.Errorf("bundle has %d actions, max is %d", len(b.Actions), MaxActionsPerNote)
	}
	for _, a := range b.Actions {
		if a.ID == "" {
			return fmt.Errorf("action ID is required")
		}
		if a.NoteID != b.Note.ID {
			return fmt.Errorf("action %s belongs to note %s, not %s", a.ID, a.NoteID, b.Note.ID)
		}
		if !a.Priority.IsValid() {
			return fmt.Errorf("action %s has invalid priority: %s", a.ID, a.Priority)
		}
		if !a.Status.IsValid() {
			return fmt.Errorf("action %s has invalid status: %s", a.ID, a.Status)
		}
	}
	if b.Expert.NoteID != b.Note.ID {
		return fmt.Errorf("expert observation belongs to note %s, not %s", b.Expert.NoteID, b.Note.ID)
	}
	if !b.Expert.Persona.IsValid() {
		return fmt.Errorf("expert persona is invalid: %s", b.Expert.Persona)
	}
	return nil
}
