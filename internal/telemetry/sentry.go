// Package telemetry wraps Sentry tracing for the enrichment pipeline and the
// bundle store.
package telemetry

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/nocturne/internal/domain"
)

const (
	serviceName  = "nocturned"
	flushTimeout = 5 * time.Second

	// redacted replaces transcript text in outgoing events
	redacted = "[transcript redacted]"
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a flush function.
// An empty DSN disables reporting.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		BeforeSend:       scrubTranscript,
	})
	if err != nil {
		return func() {}, err
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops health checks and keeps child spans with their parent
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return rate
		}
		if strings.HasSuffix(ctx.Span.Name, " /health") {
			return 0.0
		}
		var emptySpanID sentry.SpanID
		if ctx.Span.ParentSpanID != emptySpanID {
			if ctx.Span.Sampled.Bool() {
				return 1.0
			}
			return 0.0
		}
		return rate
	}
}

// scrubTranscript keeps raw transcripts out of error reports
func scrubTranscript(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event == nil {
		return nil
	}
	if event.Request != nil && strings.Contains(event.Request.Data, "transcript") {
		event.Request.Data = redacted
	}
	for key := range event.Extra {
		if strings.Contains(strings.ToLower(key), "transcript") {
			event.Extra[key] = redacted
		}
	}
	return event
}

// SpanAttributes are the tags attached to pipeline and store spans.
type SpanAttributes struct {
	NoteID    string
	ActionID  string
	Stage     string
	Operation string
}

// Span wraps sentry.Span. A zero Span is a no-op.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError records err on the span. Validation and not-found errors only
// mark the span; everything else is also reported as an exception.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}

	s.inner.Status = spanStatus(err)
	if !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// Reportable reports whether err indicates a fault rather than bad input
func Reportable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code != domain.ErrCodeValidation && domainErr.Code != domain.ErrCodeNotFound
	}
	return true
}

func spanStatus(err error) sentry.SpanStatus {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeValidation:
			return sentry.SpanStatusInvalidArgument
		case domain.ErrCodeNotFound:
			return sentry.SpanStatusNotFound
		case domain.ErrCodeTimeout:
			return sentry.SpanStatusDeadlineExceeded
		case domain.ErrCodeConfiguration:
			return sentry.SpanStatusFailedPrecondition
		}
	}
	if errors.Is(err, context.Canceled) {
		return sentry.SpanStatusCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sentry.SpanStatusDeadlineExceeded
	}
	return sentry.SpanStatusInternalError
}

func setAttributes(span *sentry.Span, attrs SpanAttributes) {
	if attrs.NoteID != "" {
		span.SetTag("note_id", attrs.NoteID)
	}
	if attrs.ActionID != "" {
		span.SetTag("action_id", attrs.ActionID)
	}
	if attrs.Stage != "" {
		span.SetTag("stage", attrs.Stage)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// ctx carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	setAttributes(span, attrs)
	return span.Context(), &Span{inner: span}
}

// AddBreadcrumb adds a breadcrumb to the hub in ctx, or the global hub.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
		return
	}
	sentry.AddBreadcrumb(breadcrumb)
}
