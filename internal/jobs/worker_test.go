package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/kv"
	"github.com/cloo-solutions/nocturne/internal/store"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIndexRepairer is a mock implementation of IndexRepairer
type MockIndexRepairer struct {
	mock.Mock
}

func (m *MockIndexRepairer) RepairIndex(ctx context.Context) (*store.RepairReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RepairReport), args.Error(1)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_KeepsRunningAfterError(t *testing.T) {
	var calls atomic.Int32
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(errors.New("backend unavailable"))

	worker := NewWorker("test", mockProcessor, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	<-done
}

func TestRepairWorker_ProcessJobs(t *testing.T) {
	repairer := new(MockIndexRepairer)
	repairer.On("RepairIndex", mock.Anything).Return(&store.RepairReport{DroppedIDs: []string{"gone"}}, nil)

	err := NewRepairWorker(repairer).ProcessJobs(context.Background())

	assert.NoError(t, err)
	repairer.AssertExpectations(t)
}

func TestRepairWorker_ProcessJobs_NothingToRepair(t *testing.T) {
	repairer := new(MockIndexRepairer)
	repairer.On("RepairIndex", mock.Anything).Return(&store.RepairReport{DroppedIDs: []string{}}, nil)

	err := NewRepairWorker(repairer).ProcessJobs(context.Background())

	assert.NoError(t, err)
}

func TestRepairWorker_ProcessJobs_Error(t *testing.T) {
	repairer := new(MockIndexRepairer)
	repairer.On("RepairIndex", mock.Anything).Return(nil, errors.New("disk full"))

	err := NewRepairWorker(repairer).ProcessJobs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to repair index")
}

func TestRepairWorker_DropsDanglingEntries(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	st := store.New(backend)

	bundle := &domain.NoteBundle{
		Note: domain.StructuredNote{
			ID: "n1",
			NoteFields: domain.NoteFields{
				Title:        "Kept",
				KeyTakeaways: []string{"one"},
				Topic:        domain.DefaultTopic,
				Tags:         []string{"t"},
			},
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Actions: []domain.ActionItem{},
		Expert: domain.ExpertObservation{
			NoteID:         "n1",
			ObservationSet: domain.ObservationSet{Persona: domain.PersonaProductManager, Observations: []domain.Observation{}},
		},
	}
	require.NoError(t, st.Save(ctx, bundle))
	require.NoError(t, backend.Set(ctx, "notes:index", []byte(`["ghost","n1"]`)))

	require.NoError(t, NewRepairWorker(st).ProcessJobs(ctx))

	raw, err := backend.Get(ctx, "notes:index")
	require.NoError(t, err)
	assert.JSONEq(t, `["n1"]`, string(raw))
}
