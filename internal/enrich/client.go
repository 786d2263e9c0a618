// Package enrich runs the three model-backed enrichment stages: structure,
// extract actions and generate observations.
//
// Each stage call is a small state machine: a primary attempt, one retry with
// a stricter prompt when the response is not JSON, then a deterministic
// fallback. Whatever comes out is passed through the sanitizer.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/sanitize"
	"github.com/cloo-solutions/nocturne/internal/telemetry"
)

// Stage names one enrichment step
type Stage string

const (
	StageStructure    Stage = "structure"
	StageActions      Stage = "actions"
	StageObservations Stage = "observations"
)

// Stage temperatures: low but nonzero
const (
	structureTemperature    float32 = 0.1
	actionsTemperature      float32 = 0.1
	observationsTemperature float32 = 0.2
)

// DefaultStageTimeout bounds a single model invocation
const DefaultStageTimeout = 45 * time.Second

// Model is the generative model a stage talks to
type Model interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Client runs enrichment stages against a model
type Client struct {
	model   Model
	timeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-invocation timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a stage client. A nil model is allowed: every stage call
// then fails with domain.ErrModelNotConfigured before any request is made.
func NewClient(model Model, opts ...Option) *Client {
	c := &Client{model: model, timeout: DefaultStageTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a model is available
func (c *Client) Configured() bool {
	return c.model != nil
}

// Structure turns a transcript into note fields
func (c *Client) Structure(ctx context.Context, transcript string) (domain.NoteFields, error) {
	if strings.TrimSpace(transcript) == "" {
		return domain.NoteFields{}, domain.NewDomainError(domain.ErrCodeValidation, "transcript is required")
	}

	raw, err := c.run(ctx, stageCall{
		stage:       StageStructure,
		temperature: structureTemperature,
		primary:     structurePrompt(transcript),
		strict:      structureRetryPrompt(transcript),
		fallback:    func() any { return structureFallback(transcript) },
	})
	if err != nil {
		return domain.NoteFields{}, err
	}
	return sanitize.Note(raw), nil
}

// ExtractActions derives action items from a transcript and its note
func (c *Client) ExtractActions(ctx context.Context, transcript string, note domain.NoteFields) ([]domain.ActionDraft, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "transcript is required")
	}

	raw, err := c.run(ctx, stageCall{
		stage:       StageActions,
		temperature: actionsTemperature,
		primary:     actionsPrompt(transcript, note),
		strict:      actionsRetryPrompt(transcript),
		fallback:    func() any { return map[string]any{"actions": []any{}} },
	})
	if err != nil {
		return nil, err
	}
	return sanitize.Actions(raw), nil
}

// GenerateObservations picks a persona and writes observations for a note
func (c *Client) GenerateObservations(ctx context.Context, note domain.NoteFields, actions []domain.ActionDraft) (domain.ObservationSet, error) {
	raw, err := c.run(ctx, stageCall{
		stage:       StageObservations,
		temperature: observationsTemperature,
		primary:     observationsPrompt(note, actions),
		strict:      observationsRetryPrompt(note),
		fallback:    observationsFallback,
	})
	if err != nil {
		return domain.ObservationSet{}, err
	}
	return sanitize.Observations(raw), nil
}

type stageCall struct {
	stage       Stage
	temperature float32
	primary     string
	strict      string
	fallback    func() any
}

type callState int

const (
	statePrimary callState = iota
	stateStrict
	stateFallback
)

// run drives one stage call through primary → strict → fallback. Only
// configuration, transport and timeout errors escape; unparseable output
// never does.
func (c *Client) run(ctx context.Context, call stageCall) (any, error) {
	if c.model == nil {
		return nil, domain.ErrModelNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "enrich."+string(call.stage), telemetry.SpanAttributes{
		Stage:     string(call.stage),
		Operation: "enrich",
	})
	defer span.End()

	state := statePrimary
	for {
		switch state {
		case statePrimary, stateStrict:
			prompt := call.primary
			if state == stateStrict {
				prompt = call.strict
			}

			text, err := c.invoke(ctx, prompt, call.temperature)
			if err != nil {
				span.SetError(err)
				return nil, err
			}

			var parsed any
			if err := json.Unmarshal([]byte(text), &parsed); err == nil {
				return parsed, nil
			}

			if state == statePrimary {
				log.Printf("enrich: %s response was not valid JSON, retrying with strict prompt", call.stage)
				telemetry.AddBreadcrumb(ctx, "enrich", fmt.Sprintf("%s: unparseable response, retrying", call.stage))
				state = stateStrict
			} else {
				log.Printf("enrich: %s retry was not valid JSON, using fallback", call.stage)
				telemetry.AddBreadcrumb(ctx, "enrich", fmt.Sprintf("%s: unparseable retry, using fallback", call.stage))
				state = stateFallback
			}

		case stateFallback:
			return call.fallback(), nil
		}
	}
}

func (c *Client) invoke(ctx context.Context, prompt string, temperature float32) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.model.Complete(callCtx, prompt, temperature)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeTimeout, domain.ErrStageTimeout.Message, err)
	}
	return "", fmt.Errorf("model call failed: %w", err)
}

func structureFallback(transcript string) map[string]any {
	return map[string]any{
		"title":         ellipsize(transcript, domain.MaxTitleLength),
		"key_takeaways": []any{"Unable to process transcript automatically"},
		"summary":       ellipsize(transcript, 200),
		"entities":      map[string]any{"people": []any{}, "organizations": []any{}, "products": []any{}},
		"topic":         domain.DefaultTopic,
		"tags":          []any{"unprocessed"},
	}
}

func observationsFallback() any {
	return map[string]any{
		"persona": string(domain.PersonaProductManager),
		"observations": []any{
			map[string]any{
				"headline": "General Observation",
				"detail":   "Consider breaking down complex topics into smaller, actionable steps for better execution.",
			},
		},
	}
}

// ellipsize cuts s to limit runes, marking the cut with "..."
func ellipsize(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
