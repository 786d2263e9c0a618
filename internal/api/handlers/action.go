package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/nocturne/internal/api"
	"github.com/cloo-solutions/nocturne/internal/domain"
)

type ActionHandler struct {
	svc NoteService
}

func NewActionHandler(svc NoteService) *ActionHandler {
	return &ActionHandler{svc: svc}
}

// Toggle flips the completed flag of an action
func (h *ActionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	action, err := h.svc.ToggleAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, action)
}

// Update applies a partial patch to an action
func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.ActionPatch
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, err := h.svc.UpdateAction(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, action)
}
