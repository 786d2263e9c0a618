package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/nocturne/internal/api"
	"github.com/cloo-solutions/nocturne/internal/domain"
	"github.com/cloo-solutions/nocturne/internal/export"
	"github.com/cloo-solutions/nocturne/internal/service"
)

type NoteService interface {
	Capture(ctx context.Context, transcript string) (*domain.NoteBundle, error)
	Get(ctx context.Context, id string) (*domain.NoteBundle, error)
	List(ctx context.Context, params service.ListParams) (*service.NotePage, error)
	Delete(ctx context.Context, id string) error
	Tags(ctx context.Context) ([]string, error)
	Export(ctx context.Context, id string, format export.Format) (*export.Document, error)
	ToggleAction(ctx context.Context, actionID string) (*domain.ActionItem, error)
	UpdateAction(ctx context.Context, actionID string, patch domain.ActionPatch) (*domain.ActionItem, error)
}

type NoteHandler struct {
	svc NoteService
}

func NewNoteHandler(svc NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

type CaptureRequest struct {
	Transcript string `json:"transcript"`
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		api.Error(w, http.StatusBadRequest, "transcript is required")
		return
	}

	bundle, err := h.svc.Capture(r.Context(), req.Transcript)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, bundle)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.List(r.Context(), service.ListParams{
		Query:  query.Get("q"),
		Tags:   splitTags(query["tag"]),
		Cursor: query.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, page)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, bundle)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, tags)
}

// Export writes the rendered document as the raw response body
func (h *NoteHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	doc, err := h.svc.Export(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.Content))
}

// splitTags accepts both repeated ?tag= params and comma separated values
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
