package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/services"
)

// NoteHandler handles the caller's private note categories and notes.
type NoteHandler struct {
	responder
	coord services.CoordinatorProvider
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(coord services.CoordinatorProvider, detailed bool) *NoteHandler {
	return &NoteHandler{responder: responder{detailed: detailed}, coord: coord}
}

// GetAll returns the caller's own note categories.
func (h *NoteHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.View(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, view.PNCategories)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m services.CreatePNCategory
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &m, http.StatusCreated)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var m services.UpdatePNCategory
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	m.CategoryID = chi.URLParam(r, "id")
	h.mutate(w, r, h.coord, &m, http.StatusOK)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeletePNCategory{CategoryID: chi.URLParam(r, "id")}, http.StatusNoContent)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var n services.NoteInput
	if err := decode(r, &n); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.CreatePNNote{CategoryID: chi.URLParam(r, "id"), Note: n}, http.StatusCreated)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var n services.NotePatch
	if err := decode(r, &n); err != nil {
		h.fail(w, r, err)
		return
	}
	n.ID = chi.URLParam(r, "noteId")
	h.mutate(w, r, h.coord, &services.UpdatePNNote{CategoryID: chi.URLParam(r, "id"), Note: n}, http.StatusOK)
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeletePNNote{
		CategoryID: chi.URLParam(r, "id"),
		NoteID:     chi.URLParam(r, "noteId"),
	}, http.StatusNoContent)
}
