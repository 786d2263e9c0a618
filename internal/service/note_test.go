package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/export"
	"github.com/cloo-solutions/nocturne/internal/kv"
	"github.com/cloo-solutions/nocturne/internal/pagination"
	"github.com/cloo-solutions/nocturne/internal/pipeline"
	"github.com/cloo-solutions/nocturne/internal/store"
)

// MockProcessor is a mock for the pipeline
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, transcript string) (*pipeline.Result, error) {
	args := m.Called(ctx, transcript)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

// MockUUIDGenerator hands out a fixed sequence of ids
type MockUUIDGenerator struct {
	uuids []string
	index int
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.index >= len(m.uuids) {
		return "uuid-overflow"
	}
	id := m.uuids[m.index]
	m.index++
	return id
}

func strPtr(s string) *string { return &s }

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Note: domain.NoteFields{
			Title:        "Login handoff",
			KeyTakeaways: []string{"Sarah owns login", "Due Friday", "Keep scope small"},
			Summary:      "Sarah will handle login by Friday.",
			Entities:     domain.Entities{People: []string{"Sarah"}, Organizations: []string{}, Products: []string{}},
			Topic:        "Engineering",
			Tags:         []string{"login", "sarah"},
		},
		Actions: []domain.ActionDraft{
			{Title: "Handle login", Owner: strPtr("Sarah"), DueDate: strPtr("2025-03-07"), Priority: domain.PriorityHigh, Confidence: 0.9},
			{Title: "Review scope", Priority: domain.PriorityMedium, Confidence: 0.5},
		},
		Observations: domain.ObservationSet{
			Persona: domain.PersonaProductManager,
			Observations: []domain.Observation{
				{Headline: "Define done", Detail: "Write acceptance criteria."},
				{Headline: "Check dependencies", Detail: "Confirm the auth provider."},
			},
		},
	}
}

func newTestService(processor Processor, uuids ...string) (*NoteService, *store.Store) {
	st := store.New(kv.NewMemory())
	svc := NewNoteServiceWithUUIDGen(processor, st, NewMockUUIDGenerator(uuids...))
	svc.now = func() time.Time { return time.Date(2025, 3, 3, 8, 0, 0, 0, time.FixedZone("CET", 3600)) }
	return svc, st
}

func TestNoteService_Capture(t *testing.T) {
	processor := new(MockProcessor)
	svc, st := newTestService(processor, "note-1", "act-1", "act-2")
	ctx := context.Background()

	processor.On("Process", mock.Anything, "Sarah will handle login by Friday.").Return(sampleResult(), nil)

	bundle, err := svc.Capture(ctx, "  Sarah will handle login by Friday.  ")

	require.NoError(t, err)
	assert.Equal(t, "note-1", bundle.ID())
	assert.Equal(t, "Sarah will handle login by Friday.", bundle.Note.Transcript)
	assert.Equal(t, time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC), bundle.Note.CreatedAt)
	assert.Equal(t, time.UTC, bundle.Note.CreatedAt.Location())

	require.Len(t, bundle.Actions, 2)
	assert.Equal(t, "act-1", bundle.Actions[0].ID)
	assert.Equal(t, "act-2", bundle.Actions[1].ID)
	for _, a := range bundle.Actions {
		assert.Equal(t, "note-1", a.NoteID)
		assert.Equal(t, domain.ActionStatusOpen, a.Status)
	}
	assert.Equal(t, "note-1", bundle.Expert.NoteID)
	assert.Equal(t, domain.PersonaProductManager, bundle.Expert.Persona)

	stored, err := st.Get(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, bundle, stored)
	processor.AssertExpectations(t)
}

func TestNoteService_Capture_EmptyTranscript(t *testing.T) {
	processor := new(MockProcessor)
	svc, _ := newTestService(processor)

	_, err := svc.Capture(context.Background(), " \n\t ")

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	processor.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestNoteService_Capture_PipelineFailureStoresNothing(t *testing.T) {
	processor := new(MockProcessor)
	svc, st := newTestService(processor, "note-1")
	ctx := context.Background()

	processor.On("Process", mock.Anything, "hello").Return(nil, domain.ErrModelNotConfigured)

	bundle, err := svc.Capture(ctx, "hello")

	assert.Nil(t, bundle)
	assert.ErrorIs(t, err, domain.ErrModelNotConfigured)
	all, err := st.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNoteService_Assemble_EmptyTitleFallsBackToTranscript(t *testing.T) {
	svc, _ := newTestService(new(MockProcessor), "note-1")
	result := sampleResult()
	result.Note.Title = ""
	result.Actions = nil

	transcript := strings.Repeat("word ", 30)
	bundle := svc.Assemble(transcript, result)

	assert.Equal(t, []rune(transcript)[:domain.MaxTitleLength], []rune(bundle.Note.Title))
	assert.NotNil(t, bundle.Actions)
	assert.Empty(t, bundle.Actions)
}

func TestNoteService_List(t *testing.T) {
	processor := new(MockProcessor)
	svc, _ := newTestService(processor, "note-1", "a1", "a2", "note-2", "a3", "a4", "note-3", "a5", "a6")
	ctx := context.Background()

	first := sampleResult()
	second := sampleResult()
	second.Note.Title = "Quarterly budget"
	second.Note.Tags = []string{"finance"}
	third := sampleResult()
	third.Note.Title = "Budget follow-up"
	third.Note.Tags = []string{"finance", "login"}

	processor.On("Process", mock.Anything, "one").Return(first, nil).Once()
	processor.On("Process", mock.Anything, "two").Return(second, nil).Once()
	processor.On("Process", mock.Anything, "three").Return(third, nil).Once()
	for _, tr := range []string{"one", "two", "three"} {
		_, err := svc.Capture(ctx, tr)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-3", "note-2", "note-1"}, bundleIDs(page.Items))

	page, err = svc.List(ctx, ListParams{Query: "budget"})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-3", "note-2"}, bundleIDs(page.Items))

	page, err = svc.List(ctx, ListParams{Tags: []string{"login"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-3", "note-1"}, bundleIDs(page.Items))

	page, err = svc.List(ctx, ListParams{Query: "budget", Tags: []string{"login"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-3"}, bundleIDs(page.Items))

	page, err = svc.List(ctx, ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-3", "note-2"}, bundleIDs(page.Items))
	assert.True(t, page.HasMore)

	page, err = svc.List(ctx, ListParams{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-1"}, bundleIDs(page.Items))
	assert.False(t, page.HasMore)
}

func TestNoteService_List_InvalidCursor(t *testing.T) {
	svc, _ := newTestService(new(MockProcessor))

	_, err := svc.List(context.Background(), ListParams{Cursor: pagination.EncodeCursor("missing")})

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestNoteService_ActionsAndDelete(t *testing.T) {
	processor := new(MockProcessor)
	svc, _ := newTestService(processor, "note-1", "act-1", "act-2")
	ctx := context.Background()
	processor.On("Process", mock.Anything, "hello").Return(sampleResult(), nil)

	_, err := svc.Capture(ctx, "hello")
	require.NoError(t, err)

	action, err := svc.ToggleAction(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusDone, action.Status)

	action, err = svc.UpdateAction(ctx, "act-2", domain.ActionPatch{Owner: strPtr("Priya")})
	require.NoError(t, err)
	require.NotNil(t, action.Owner)
	assert.Equal(t, "Priya", *action.Owner)

	_, err = svc.UpdateAction(ctx, "act-2", domain.ActionPatch{})
	assert.Error(t, err)

	_, err = svc.ToggleAction(ctx, "")
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "sarah"}, tags)

	require.NoError(t, svc.Delete(ctx, "note-1"))
	_, err = svc.Get(ctx, "note-1")
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "note-1"), domain.ErrNoteNotFound)
}

func TestNoteService_Export(t *testing.T) {
	processor := new(MockProcessor)
	svc, _ := newTestService(processor, "note-1", "act-1", "act-2")
	ctx := context.Background()
	processor.On("Process", mock.Anything, "hello").Return(sampleResult(), nil)
	_, err := svc.Capture(ctx, "hello")
	require.NoError(t, err)

	doc, err := svc.Export(ctx, "note-1", export.FormatCalendar)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "DTSTART:20250307T000000Z")
	assert.Equal(t, "login-handoff.ics", doc.Filename)

	_, err = svc.Export(ctx, "missing", export.FormatMarkdown)
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

// The scenario below drives the whole capture path with the real stage
// client and a scripted model.
func TestNoteService_Capture_EndToEnd(t *testing.T) {
	svc, _ := newEndToEndService(t)

	bundle, err := svc.Capture(context.Background(), "Sarah will handle login by Friday.")
	require.NoError(t, err)

	note := bundle.Note
	assert.NotEmpty(t, note.Title)
	assert.LessOrEqual(t, len([]rune(note.Title)), domain.MaxTitleLength)
	assert.GreaterOrEqual(t, len(note.KeyTakeaways), 3)
	assert.LessOrEqual(t, len(note.KeyTakeaways), 6)

	assert.LessOrEqual(t, len(bundle.Actions), domain.MaxActionsPerNote)
	for _, a := range bundle.Actions {
		assert.True(t, a.Priority.IsValid())
		assert.GreaterOrEqual(t, a.Confidence, 0.0)
		assert.LessOrEqual(t, a.Confidence, 1.0)
	}

	assert.True(t, bundle.Expert.Persona.IsValid())
	assert.GreaterOrEqual(t, len(bundle.Expert.Observations), 2)
	assert.LessOrEqual(t, len(bundle.Expert.Observations), 4)
	for _, o := range bundle.Expert.Observations {
		assert.NotEmpty(t, o.Headline)
		assert.NotEmpty(t, o.Detail)
	}
}

func bundleIDs(bundles []*domain.NoteBundle) []string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.ID()
	}
	return out
}
