package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidBundle() *NoteBundle {
	return &NoteBundle{
		Note: StructuredNote{
			ID: "note-1",
			NoteFields: NoteFields{
				Title:        "Login work",
				KeyTakeaways: []string{"Sarah owns login"},
				Topic:        DefaultTopic,
				Tags:         []string{"login"},
			},
			Transcript: "Sarah will handle login by Friday.",
			CreatedAt:  time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
		},
		Actions: []ActionItem{
			{
				ID:          "action-1",
				NoteID:      "note-1",
				ActionDraft: ActionDraft{Title: "Ship login", Priority: PriorityHigh, Confidence: 0.9},
				Status:      ActionStatusOpen,
			},
		},
		Expert: ExpertObservation{
			NoteID: "note-1",
			ObservationSet: ObservationSet{
				Persona:      PersonaProductManager,
				Observations: []Observation{{Headline: "Scope", Detail: "Keep it small."}},
			},
		},
	}
}

func TestValidateBundle(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *NoteBundle)
		wantErr string
	}{
		{name: "valid bundle", mutate: func(b *NoteBundle) {}},
		{name: "missing note ID", mutate: func(b *NoteBundle) { b.Note.ID = "" }, wantErr: "note ID is required"},
		{name: "missing action ID", mutate: func(b *NoteBundle) { b.Actions[0].ID = "" }, wantErr: "action ID is required"},
		{name: "foreign action", mutate: func(b *NoteBundle) { b.Actions[0].NoteID = "other" }, wantErr: "belongs to note other"},
		{name: "bad priority", mutate: func(b *NoteBundle) { b.Actions[0].Priority = "urgent" }, wantErr: "invalid priority"},
		{name: "bad status", mutate: func(b *NoteBundle) { b.Actions[0].Status = "blocked" }, wantErr: "invalid status"},
		{name: "bad persona", mutate: func(b *NoteBundle) { b.Expert.Persona = "Chef" }, wantErr: "persona is invalid"},
		{
			name: "too many actions",
			mutate: func(b *NoteBundle) {
				for i := 0; i < MaxActionsPerNote; i++ {
					a := b.Actions[0]
					a.ID = fmt.Sprintf("extra-%d", i)
					b.Actions = append(b.Actions, a)
				}
			},
			wantErr: "max is 8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newValidBundle()
			tt.mutate(b)
			err := ValidateBundle(b)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Error(t, ValidateBundle(nil))
}

func TestNoteBundle_FindAction(t *testing.T) {
	b := newValidBundle()
	assert.Equal(t, 0, b.FindAction("action-1"))
	assert.Equal(t, -1, b.FindAction("missing"))
	assert.Equal(t, "note-1", b.ID())
}

func TestActionStatus_Toggle(t *testing.T) {
	assert.Equal(t, ActionStatusDone, ActionStatusOpen.Toggle())
	assert.Equal(t, ActionStatusOpen, ActionStatusDone.Toggle())
}

func TestPersona_IsValid(t *testing.T) {
	for _, p := range Personas {
		assert.True(t, p.IsValid(), string(p))
	}
	assert.False(t, Persona("Chef").IsValid())
	assert.False(t, Persona("product manager").IsValid())
}

func TestIsValidDueDate(t *testing.T) {
	assert.True(t, IsValidDueDate("2025-01-05"))
	assert.False(t, IsValidDueDate("2025-1-5"))
	assert.False(t, IsValidDueDate("not-a-date"))
	assert.False(t, IsValidDueDate(""))
	assert.False(t, IsValidDueDate("2025-01-05T10:00:00Z"))
}

func TestActionPatch_ValidateAndApply(t *testing.T) {
	title := "Call the vendor"
	owner := ""
	due := "2025-03-01"
	priority := PriorityLow
	confidence := 1.7
	status := ActionStatusDone

	patch := ActionPatch{
		Title:      &title,
		Owner:      &owner,
		DueDate:    &due,
		Priority:   &priority,
		Confidence: &confidence,
		Status:     &status,
	}
	require.NoError(t, patch.Validate())
	assert.False(t, patch.IsEmpty())

	sarah := "Sarah"
	action := ActionItem{ID: "a", NoteID: "n", ActionDraft: ActionDraft{Title: "Old", Owner: &sarah, Priority: PriorityHigh, Confidence: 0.3}, Status: ActionStatusOpen}
	patch.Apply(&action)

	assert.Equal(t, "Call the vendor", action.Title)
	assert.Nil(t, action.Owner)
	require.NotNil(t, action.DueDate)
	assert.Equal(t, "2025-03-01", *action.DueDate)
	assert.Equal(t, PriorityLow, action.Priority)
	assert.Equal(t, 1.0, action.Confidence)
	assert.Equal(t, ActionStatusDone, action.Status)
	assert.Equal(t, "a", action.ID)
	assert.Equal(t, "n", action.NoteID)
}

func TestActionPatch_ValidateRejects(t *testing.T) {
	empty := ""
	badDate := "March 1st"
	badPriority := Priority("urgent")
	badStatus := ActionStatus("blocked")

	for _, patch := range []ActionPatch{
		{Title: &empty},
		{DueDate: &badDate},
		{Priority: &badPriority},
		{Status: &badStatus},
	} {
		err := patch.Validate()
		require.Error(t, err)
		assert.True(t, errors.As(err, new(*DomainError)))
	}

	assert.True(t, ActionPatch{}.IsEmpty())
}

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("actions stage: %w", ErrModelNotConfigured)
	assert.True(t, errors.Is(wrapped, ErrModelNotConfigured))
	assert.False(t, errors.Is(wrapped, ErrStageTimeout))

	withCause := NewDomainErrorWithCause(ErrCodeTimeout, "stage timed out", errors.New("deadline"))
	assert.True(t, errors.Is(withCause, ErrStageTimeout))
	assert.Equal(t, "[TIMEOUT] stage timed out: deadline", withCause.Error())
}
