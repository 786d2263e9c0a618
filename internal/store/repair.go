package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/kv"
)

// RepairReport describes what RepairIndex changed
type RepairReport struct {
	// DroppedIDs are index entries whose bundle was missing or unreadable
	DroppedIDs []string `json:"dropped_ids"`
	// StaleActions is the number of action pointers removed
	StaleActions int `json:"stale_actions"`
	// Rebuilt is set when the index itself was unreadable and was rebuilt
	// from the stored bundles, newest first.
	Rebuilt bool `json:"rebuilt"`
}

// Changed reports whether the repair touched anything
func (r *RepairReport) Changed() bool {
	return len(r.DroppedIDs) > 0 || r.StaleActions > 0 || r.Rebuilt
}

// RepairIndex removes dangling index entries and stale action pointers.
// ListAll never does this implicitly.
func (s *Store) RepairIndex(ctx context.Context) (*RepairReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &RepairReport{DroppedIDs: []string{}}

	ids, err := readIndex(ctx, s.backend)
	if err != nil {
		var domainErr *domain.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeInternalError {
			return nil, err
		}
		log.Printf("store: index unreadable, rebuilding from stored bundles: %v", err)
		ids, err = s.rebuildIndex(ctx)
		if err != nil {
			return nil, err
		}
		report.Rebuilt = true
	}

	kept := make([]string, 0, len(ids))
	owners := make(map[string]string)
	for _, id := range ids {
		b, err := getBundle(ctx, s.backend, id)
		if err != nil {
			report.DroppedIDs = append(report.DroppedIDs, id)
			continue
		}
		kept = append(kept, id)
		for _, a := range b.Actions {
			owners[a.ID] = id
		}
	}

	pointers, err := s.backend.List(ctx, actionPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list action pointers: %w", err)
	}
	var stale []string
	for _, key := range pointers {
		actionID := strings.TrimPrefix(key, actionPrefix)
		noteID, err := s.backend.Get(ctx, key)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return nil, err
		}
		if owner, ok := owners[actionID]; !ok || owner != string(noteID) {
			stale = append(stale, key)
		}
	}
	report.StaleActions = len(stale)

	if !report.Changed() {
		return report, nil
	}

	err = s.write(ctx, func(tx kv.Backend) error {
		if err := writeIndex(ctx, tx, kept); err != nil {
			return err
		}
		for _, key := range stale {
			if err := tx.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write repaired index: %w", err)
	}

	log.Printf("store: index repaired (dropped: %d, stale actions: %d, rebuilt: %t)",
		len(report.DroppedIDs), report.StaleActions, report.Rebuilt)
	return report, nil
}

// rebuildIndex lists stored bundles newest first
func (s *Store) rebuildIndex(ctx context.Context) ([]string, error) {
	keys, err := s.backend.List(ctx, bundlePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}

	bundles := make([]*domain.NoteBundle, 0, len(keys))
	for _, key := range keys {
		b, err := getBundle(ctx, s.backend, strings.TrimPrefix(key, bundlePrefix))
		if err != nil {
			continue
		}
		bundles = append(bundles, b)
	}
	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Note.CreatedAt.After(bundles[j].Note.CreatedAt)
	})

	ids := make([]string, len(bundles))
	for i, b := range bundles {
		ids[i] = b.ID()
	}
	return ids, nil
}
