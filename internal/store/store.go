// Package store persists NoteBundles over a kv.Backend.
//
// Layout:
//
//	bundle:<noteID>    JSON-encoded NoteBundle
//	notes:index        JSON array of note ids, most recently saved first
//	action:<actionID>  note id owning the action
//
// The index is the source of truth for listing. Writes go bundle first and
// index last, so a failure part-way leaves at worst an invisible bundle,
// never an index entry without a bundle.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/kv"
	"github.com/cloo-solutions/nocturne/internal/telemetry"
)

const (
	bundlePrefix = "bundle:"
	actionPrefix = "action:"
	indexKey     = "notes:index"
)

func bundleKey(id string) string       { return bundlePrefix + id }
func actionKey(actionID string) string { return actionPrefix + actionID }

// Store is the bundle store. Read-modify-write operations within a process
// are serialised; across processes the last write wins.
type Store struct {
	mu      sync.RWMutex
	backend kv.Backend
}

// New creates a store over backend
func New(backend kv.Backend) *Store {
	return &Store{backend: backend}
}

// Save upserts a bundle and moves its id to the front of the index
func (s *Store) Save(ctx context.Context, bundle *domain.NoteBundle) error {
	if err := domain.ValidateBundle(bundle); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid bundle", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "store.Save", telemetry.SpanAttributes{
		NoteID:    bundle.ID(),
		Operation: "save",
	})
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(ctx, func(tx kv.Backend) error { return saveBundle(ctx, tx, bundle) }); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to save bundle %s: %w", bundle.ID(), err)
	}
	return nil
}

// Get returns the bundle with the given id or domain.ErrNoteNotFound
func (s *Store) Get(ctx context.Context, id string) (*domain.NoteBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getBundle(ctx, s.backend, id)
}

// ListAll returns every indexed bundle in index order. Index entries whose
// bundle is missing or unreadable are skipped; the index is left as is.
func (s *Store) ListAll(ctx context.Context) ([]*domain.NoteBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listBundles(ctx, s.backend)
}

// Delete removes a bundle, its action pointers and its index entry
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "store.Delete", telemetry.SpanAttributes{
		NoteID:    id,
		Operation: "delete",
	})
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, err := getBundle(ctx, s.backend, id)
	if err != nil && !errors.Is(err, domain.ErrNoteNotFound) {
		return err
	}

	ids, err := readIndex(ctx, s.backend)
	if err != nil {
		return err
	}
	if bundle == nil && !contains(ids, id) {
		return domain.ErrNoteNotFound
	}

	err = s.write(ctx, func(tx kv.Backend) error {
		// index first: a failure after this point leaves an unlisted bundle
		if err := writeIndex(ctx, tx, without(ids, id)); err != nil {
			return err
		}
		if err := tx.Delete(ctx, bundleKey(id)); err != nil {
			return err
		}
		if bundle != nil {
			for _, a := range bundle.Actions {
				if err := tx.Delete(ctx, actionKey(a.ID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to delete bundle %s: %w", id, err)
	}
	return nil
}

// Search returns listed bundles matching query, in index order. An empty
// query matches everything.
func (s *Store) Search(ctx context.Context, query string) ([]*domain.NoteBundle, error) {
	bundles, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return bundles, nil
	}

	matches := make([]*domain.NoteBundle, 0, len(bundles))
	for _, b := range bundles {
		if Matches(b, query) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}

// Matches reports whether query occurs, case-insensitively, in the note's
// title, summary, topic, any tag or any key takeaway.
func Matches(b *domain.NoteBundle, query string) bool {
	q := strings.ToLower(query)
	note := b.Note

	fields := make([]string, 0, 3+len(note.Tags)+len(note.KeyTakeaways))
	fields = append(fields, note.Title, note.Summary, note.Topic)
	fields = append(fields, note.Tags...)
	fields = append(fields, note.KeyTakeaways...)

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// FilterByTags keeps bundles carrying at least one of tags. No tags keeps all.
func FilterByTags(bundles []*domain.NoteBundle, tags []string) []*domain.NoteBundle {
	if len(tags) == 0 {
		return bundles
	}

	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}

	out := make([]*domain.NoteBundle, 0, len(bundles))
	for _, b := range bundles {
		for _, t := range b.Note.Tags {
			if wanted[t] {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// Tags returns the sorted set of distinct tags across listed bundles
func (s *Store) Tags(ctx context.Context) ([]string, error) {
	bundles, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, b := range bundles {
		for _, t := range b.Note.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// ToggleActionDone flips an action between open and done and saves its
// bundle. It returns domain.ErrActionNotFound if no bundle owns the action.
func (s *Store) ToggleActionDone(ctx context.Context, actionID string) (*domain.ActionItem, error) {
	return s.mutateAction(ctx, actionID, "toggle", func(a *domain.ActionItem) {
		a.Status = a.Status.Toggle()
	})
}

// UpdateAction merges patch into an action and saves its bundle
func (s *Store) UpdateAction(ctx context.Context, actionID string, patch domain.ActionPatch) (*domain.ActionItem, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.mutateAction(ctx, actionID, "update", patch.Apply)
}

func (s *Store) mutateAction(ctx context.Context, actionID, op string, mutate func(*domain.ActionItem)) (*domain.ActionItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.Action."+op, telemetry.SpanAttributes{
		ActionID:  actionID,
		Operation: op,
	})
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, idx, err := findAction(ctx, s.backend, actionID)
	if err != nil {
		return nil, err
	}

	mutate(&bundle.Actions[idx])

	if err := s.write(ctx, func(tx kv.Backend) error { return saveBundle(ctx, tx, bundle) }); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to save bundle %s: %w", bundle.ID(), err)
	}

	action := bundle.Actions[idx]
	return &action, nil
}

// write applies fn atomically when the backend supports batches and
// sequentially otherwise.
func (s *Store) write(ctx context.Context, fn func(tx kv.Backend) error) error {
	if b, ok := s.backend.(kv.Batcher); ok {
		return b.Batch(ctx, fn)
	}
	return fn(s.backend)
}

func saveBundle(ctx context.Context, tx kv.Backend, bundle *domain.NoteBundle) error {
	id := bundle.ID()

	// an unreadable previous copy is overwritten
	previous, _ := getBundle(ctx, tx, id)

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := tx.Set(ctx, bundleKey(id), data); err != nil {
		return err
	}

	current := make(map[string]bool, len(bundle.Actions))
	for _, a := range bundle.Actions {
		current[a.ID] = true
		if err := tx.Set(ctx, actionKey(a.ID), []byte(id)); err != nil {
			return err
		}
	}
	if previous != nil {
		for _, a := range previous.Actions {
			if !current[a.ID] {
				if err := tx.Delete(ctx, actionKey(a.ID)); err != nil {
					return err
				}
			}
		}
	}

	ids, err := readIndex(ctx, tx)
	if err != nil {
		return err
	}
	return writeIndex(ctx, tx, append([]string{id}, without(ids, id)...))
}

func getBundle(ctx context.Context, backend kv.Backend, id string) (*domain.NoteBundle, error) {
	data, err := backend.Get(ctx, bundleKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to read bundle %s: %w", id, err)
	}

	var bundle domain.NoteBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "corrupt bundle "+id, err)
	}
	return &bundle, nil
}

func listBundles(ctx context.Context, backend kv.Backend) ([]*domain.NoteBundle, error) {
	ids, err := readIndex(ctx, backend)
	if err != nil {
		return nil, err
	}

	bundles := make([]*domain.NoteBundle, 0, len(ids))
	for _, id := range ids {
		b, err := getBundle(ctx, backend, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNoteNotFound) {
				log.Printf("store: skipping bundle %s: %v", id, err)
			}
			continue
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// findAction resolves an action through its pointer key, falling back to a
// scan of listed bundles when the pointer is missing or stale. A pointer to
// a note that is not in the index is stale: only listed bundles own actions.
func findAction(ctx context.Context, backend kv.Backend, actionID string) (*domain.NoteBundle, int, error) {
	if noteID, err := backend.Get(ctx, actionKey(actionID)); err == nil {
		listed, err := readIndex(ctx, backend)
		if err != nil {
			return nil, -1, err
		}
		if contains(listed, string(noteID)) {
			if b, err := getBundle(ctx, backend, string(noteID)); err == nil {
				if idx := b.FindAction(actionID); idx >= 0 {
					return b, idx, nil
				}
			}
		}
	}

	bundles, err := listBundles(ctx, backend)
	if err != nil {
		return nil, -1, err
	}
	for _, b := range bundles {
		if idx := b.FindAction(actionID); idx >= 0 {
			return b, idx, nil
		}
	}
	return nil, -1, domain.ErrActionNotFound
}

func readIndex(ctx context.Context, backend kv.Backend) ([]string, error) {
	data, err := backend.Get(ctx, indexKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "corrupt index", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func writeIndex(ctx context.Context, tx kv.Backend, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return tx.Set(ctx, indexKey, data)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
