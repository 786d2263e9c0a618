package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/nocturne/internal/store"
	"github.com/cloo-solutions/nocturne/internal/telemetry"
)

// IndexRepairer repairs the note index
type IndexRepairer interface {
	RepairIndex(ctx context.Context) (*store.RepairReport, error)
}

// RepairWorker periodically drops dangling entries from the note index
type RepairWorker struct {
	repairer IndexRepairer
}

// NewRepairWorker creates a new RepairWorker instance
func NewRepairWorker(repairer IndexRepairer) *RepairWorker {
	return &RepairWorker{repairer: repairer}
}

// ProcessJobs implements the JobProcessor interface
func (w *RepairWorker) ProcessJobs(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "RepairWorker.ProcessJobs", telemetry.SpanAttributes{
		Operation: "repair_index",
	})
	defer span.End()

	report, err := w.repairer.RepairIndex(ctx)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to repair index: %w", err)
	}

	if report.Changed() {
		log.Printf("jobs: index repair dropped %d notes and %d action pointers", len(report.DroppedIDs), report.StaleActions)
	}
	return nil
}
