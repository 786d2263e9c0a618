package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

func TestInit_EmptyDSN(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestReportable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", domain.ErrInvalidInput, false},
		{"not found", domain.ErrNoteNotFound, false},
		{"wrapped not found", fmt.Errorf("lookup: %w", domain.ErrActionNotFound), false},
		{"configuration", domain.ErrModelNotConfigured, true},
		{"timeout", domain.ErrStageTimeout, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("disk full"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reportable(tt.err))
		})
	}
}

func TestSpanStatus(t *testing.T) {
	assert.Equal(t, sentry.SpanStatusInvalidArgument, spanStatus(domain.ErrInvalidInput))
	assert.Equal(t, sentry.SpanStatusNotFound, spanStatus(domain.ErrNoteNotFound))
	assert.Equal(t, sentry.SpanStatusDeadlineExceeded, spanStatus(domain.ErrStageTimeout))
	assert.Equal(t, sentry.SpanStatusFailedPrecondition, spanStatus(domain.ErrModelNotConfigured))
	assert.Equal(t, sentry.SpanStatusCanceled, spanStatus(context.Canceled))
	assert.Equal(t, sentry.SpanStatusInternalError, spanStatus(errors.New("boom")))
}

func TestScrubTranscript(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{Data: `{"transcript":"private words"}`},
		Extra:   map[string]interface{}{"Transcript": "private words", "stage": "structure"},
	}

	out := scrubTranscript(event, nil)

	assert.Equal(t, redacted, out.Request.Data)
	assert.Equal(t, redacted, out.Extra["Transcript"])
	assert.Equal(t, "structure", out.Extra["stage"])
	assert.Nil(t, scrubTranscript(nil, nil))
}

func TestSpan_ZeroValueIsNoop(t *testing.T) {
	var span Span
	span.SetError(errors.New("ignored"))
	span.End()
}

func TestStartSpan_WithoutSentry(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "store.Save", SpanAttributes{NoteID: "n1", Operation: "save"})
	require.NotNil(t, ctx)
	span.SetError(domain.ErrNoteNotFound)
	span.End()

	AddBreadcrumb(ctx, "pipeline", "structure stage done")
}
