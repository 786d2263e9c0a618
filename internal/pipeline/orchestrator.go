// Package pipeline sequences the enrichment stages for one transcript.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/telemetry"
)

// Enricher runs the individual model-backed stages
type Enricher interface {
	Structure(ctx context.Context, transcript string) (domain.NoteFields, error)
	ExtractActions(ctx context.Context, transcript string, note domain.NoteFields) ([]domain.ActionDraft, error)
	GenerateObservations(ctx context.Context, note domain.NoteFields, actions []domain.ActionDraft) (domain.ObservationSet, error)
}

// Result is the combined output of the three stages
type Result struct {
	Note         domain.NoteFields
	Actions      []domain.ActionDraft
	Observations domain.ObservationSet
}

// Orchestrator runs structure, then actions and observations
type Orchestrator struct {
	enricher Enricher
}

// NewOrchestrator creates a new pipeline orchestrator
func NewOrchestrator(enricher Enricher) *Orchestrator {
	return &Orchestrator{enricher: enricher}
}

// Process runs every stage for a transcript. Structure resolves first. The
// actions stage then runs alongside a preliminary observations call made
// with no actions; that preliminary result is discarded and observations
// are generated again once the real actions are known. Any stage error
// aborts the whole run.
func (o *Orchestrator) Process(ctx context.Context, transcript string) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Process", telemetry.SpanAttributes{
		Operation: "process",
	})
	defer span.End()

	start := time.Now()

	note, err := o.enricher.Structure(ctx, transcript)
	if err != nil {
		span.SetError(err)
		return nil, stageError("structure", err)
	}

	var actions []domain.ActionDraft
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actions, err = o.enricher.ExtractActions(gctx, transcript, note)
		if err != nil {
			return stageError("actions", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := o.enricher.GenerateObservations(gctx, note, []domain.ActionDraft{}); err != nil {
			return stageError("observations", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	observations, err := o.enricher.GenerateObservations(ctx, note, actions)
	if err != nil {
		span.SetError(err)
		return nil, stageError("observations", err)
	}

	log.Printf("pipeline: processed transcript (actions: %d, persona: %s, elapsed: %s)",
		len(actions), observations.Persona, time.Since(start).Round(time.Millisecond))

	return &Result{
		Note:         note,
		Actions:      actions,
		Observations: observations,
	}, nil
}

func stageError(stage string, err error) error {
	return fmt.Errorf("failed to process transcript: %s stage: %w", stage, err)
}
