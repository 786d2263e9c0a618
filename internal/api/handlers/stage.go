package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/nocturne/internal/api"
	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/sanitize"
)

// StageClient runs single enrichment stages
type StageClient interface {
	Structure(ctx context.Context, transcript string) (domain.NoteFields, error)
	ExtractActions(ctx context.Context, transcript string, note domain.NoteFields) ([]domain.ActionDraft, error)
	GenerateObservations(ctx context.Context, note domain.NoteFields, actions []domain.ActionDraft) (domain.ObservationSet, error)
}

// StageHandler exposes each enrichment stage as its own endpoint. Responses
// are the bare sanitized record, without the data envelope.
type StageHandler struct {
	client StageClient
}

func NewStageHandler(client StageClient) *StageHandler {
	return &StageHandler{client: client}
}

// stageRequest keeps fields raw so that presence and type can be checked
// before anything reaches the model.
type stageRequest struct {
	Transcript json.RawMessage `json:"transcript"`
	Structured json.RawMessage `json:"structured"`
	Actions    json.RawMessage `json:"actions"`
}

// ActionsResponse is the body returned by the actions stage
type ActionsResponse struct {
	Actions []domain.ActionDraft `json:"actions"`
}

// Structure runs the structuring stage on a transcript and returns the draft note
func (h *StageHandler) Structure(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStageRequest(w, r)
	if !ok {
		return
	}
	transcript, ok := requireString(req.Transcript)
	if !ok {
		api.Error(w, http.StatusBadRequest, "transcript is required")
		return
	}

	note, err := h.client.Structure(r.Context(), transcript)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, note)
}

// Actions extracts action drafts from a transcript
func (h *StageHandler) Actions(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStageRequest(w, r)
	if !ok {
		return
	}
	transcript, ok := requireString(req.Transcript)
	if !ok {
		api.Error(w, http.StatusBadRequest, "transcript is required")
		return
	}
	structured, ok := requireObject(req.Structured)
	if !ok {
		api.Error(w, http.StatusBadRequest, "structured must be an object")
		return
	}

	actions, err := h.client.ExtractActions(r.Context(), transcript, sanitize.Note(structured))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, ActionsResponse{Actions: actions})
}

// Observations runs the observation stage against a structured note
func (h *StageHandler) Observations(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStageRequest(w, r)
	if !ok {
		return
	}
	structured, ok := requireObject(req.Structured)
	if !ok {
		api.Error(w, http.StatusBadRequest, "structured must be an object")
		return
	}
	actions, ok := requireArray(req.Actions)
	if !ok {
		api.Error(w, http.StatusBadRequest, "actions must be an array")
		return
	}

	set, err := h.client.GenerateObservations(r.Context(), sanitize.Note(structured), sanitize.Actions(actions))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, set)
}

func decodeStageRequest(w http.ResponseWriter, r *http.Request) (*stageRequest, bool) {
	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

func requireString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func requireObject(raw json.RawMessage) (map[string]any, bool) {
	var obj map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &obj) != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func requireArray(raw json.RawMessage) ([]any, bool) {
	var arr []any
	if len(raw) == 0 || json.Unmarshal(raw, &arr) != nil || arr == nil {
		return nil, false
	}
	return arr, true
}
