package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/export"
	"github.com/cloo-solutions/nocturne/internal/pagination"
	"github.com/cloo-solutions/nocturne/internal/pipeline"
	"github.com/cloo-solutions/nocturne/internal/store"
	"github.com/cloo-solutions/nocturne/internal/telemetry"
)

// transcriptPreviewLength bounds how much of a transcript reaches the logs
const transcriptPreviewLength = 100

// Processor turns a transcript into enriched stage output
type Processor interface {
	Process(ctx context.Context, transcript string) (*pipeline.Result, error)
}

// BundleStore defines the persistence operations the note service needs
type BundleStore interface {
	Save(ctx context.Context, bundle *domain.NoteBundle) error
	Get(ctx context.Context, id string) (*domain.NoteBundle, error)
	Search(ctx context.Context, query string) ([]*domain.NoteBundle, error)
	Delete(ctx context.Context, id string) error
	Tags(ctx context.Context) ([]string, error)
	ToggleActionDone(ctx context.Context, actionID string) (*domain.ActionItem, error)
	UpdateAction(ctx context.Context, actionID string, patch domain.ActionPatch) (*domain.ActionItem, error)
	RepairIndex(ctx context.Context) (*store.RepairReport, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)

// ListParams selects and pages through notes
type ListParams struct {
	Query  string
	Tags   []string
	Cursor string
	Limit  int
}

// NotePage is one page of listed notes
type NotePage = pagination.PageResult[*domain.NoteBundle]

// NoteService captures transcripts into bundles and manages stored bundles
type NoteService struct {
	processor Processor
	store     BundleStore
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// NewNoteService creates a new NoteService instance
func NewNoteService(processor Processor, store BundleStore) *NoteService {
	return NewNoteServiceWithUUIDGen(processor, store, &DefaultUUIDGenerator{})
}

// NewNoteServiceWithUUIDGen creates a new NoteService with custom UUID generator (for testing)
func NewNoteServiceWithUUIDGen(processor Processor, store BundleStore, uuidGen UUIDGenerator) *NoteService {
	return &NoteService{
		processor: processor,
		store:     store,
		uuidGen:   uuidGen,
		now:       time.Now,
	}
}

// Capture runs the pipeline for a transcript and persists the resulting
// bundle. Nothing is stored if any stage fails.
func (s *NoteService) Capture(ctx context.Context, transcript string) (*domain.NoteBundle, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "transcript is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "NoteService.Capture", telemetry.SpanAttributes{
		Operation: "capture",
	})
	defer span.End()

	log.Printf("notes: capturing transcript %q", preview(transcript))

	result, err := s.processor.Process(ctx, transcript)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	bundle := s.Assemble(transcript, result)
	if err := s.store.Save(ctx, bundle); err != nil {
		span.SetError(err)
		return nil, err
	}

	log.Printf("notes: saved note %s (%d actions)", bundle.ID(), len(bundle.Actions))
	return bundle, nil
}

// Assemble attaches identifiers, timestamps and ownership to pipeline output
func (s *NoteService) Assemble(transcript string, result *pipeline.Result) *domain.NoteBundle {
	noteID := s.uuidGen.NewString()

	fields := result.Note
	if strings.TrimSpace(fields.Title) == "" {
		fields.Title = truncateRunes(transcript, domain.MaxTitleLength)
	}

	actions := make([]domain.ActionItem, 0, len(result.Actions))
	for _, draft := range result.Actions {
		actions = append(actions, domain.ActionItem{
			ID:          s.uuidGen.NewString(),
			NoteID:      noteID,
			ActionDraft: draft,
			Status:      domain.ActionStatusOpen,
		})
	}

	return &domain.NoteBundle{
		Note: domain.StructuredNote{
			ID:         noteID,
			NoteFields: fields,
			Transcript: transcript,
			CreatedAt:  s.now().UTC(),
		},
		Actions: actions,
		Expert: domain.ExpertObservation{
			NoteID:         noteID,
			ObservationSet: result.Observations,
		},
	}
}

// Get returns a single bundle
func (s *NoteService) Get(ctx context.Context, id string) (*domain.NoteBundle, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.store.Get(ctx, id)
}

// List searches, filters by tag and pages through bundles in index order
func (s *NoteService) List(ctx context.Context, params ListParams) (*NotePage, error) {
	bundles, err := s.store.Search(ctx, params.Query)
	if err != nil {
		return nil, err
	}
	bundles = store.FilterByTags(bundles, params.Tags)

	page, err := pagination.Paginate(bundles, params.Cursor, params.Limit, func(b *domain.NoteBundle) string {
		return b.ID()
	})
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) || errors.Is(err, pagination.ErrStaleCursor) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		return nil, err
	}
	return page, nil
}

// Delete removes a bundle
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingRequiredField
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("notes: deleted note %s", id)
	return nil
}

// Tags lists distinct tags across all notes
func (s *NoteService) Tags(ctx context.Context) ([]string, error) {
	return s.store.Tags(ctx)
}

// ToggleAction flips an action between open and done
func (s *NoteService) ToggleAction(ctx context.Context, actionID string) (*domain.ActionItem, error) {
	if strings.TrimSpace(actionID) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.store.ToggleActionDone(ctx, actionID)
}

// UpdateAction applies a partial update to an action
func (s *NoteService) UpdateAction(ctx context.Context, actionID string, patch domain.ActionPatch) (*domain.ActionItem, error) {
	if strings.TrimSpace(actionID) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if patch.IsEmpty() {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "no fields to update")
	}
	return s.store.UpdateAction(ctx, actionID, patch)
}

// Export renders a stored bundle in the given format
func (s *NoteService) Export(ctx context.Context, id string, format export.Format) (*export.Document, error) {
	bundle, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return export.Render(bundle, format)
}

// RepairIndex drops dangling index entries
func (s *NoteService) RepairIndex(ctx context.Context) (*store.RepairReport, error) {
	return s.store.RepairIndex(ctx)
}

func preview(transcript string) string {
	if utf8.RuneCountInString(transcript) <= transcriptPreviewLength {
		return transcript
	}
	return truncateRunes(transcript, transcriptPreviewLength) + "…"
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
