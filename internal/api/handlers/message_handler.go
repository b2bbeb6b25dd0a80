package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/services"
)

// MessageHandler handles announcements for recipients and admins.
type MessageHandler struct {
	responder
	coord services.CoordinatorProvider
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(coord services.CoordinatorProvider, detailed bool) *MessageHandler {
	return &MessageHandler{responder: responder{detailed: detailed}, coord: coord}
}

// Inbox returns the messages the caller currently sees, with read flags.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.View(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, view.Messages)
}

// MarkRead dismisses a message for the caller.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.MarkMessageRead{MessageID: chi.URLParam(r, "id")}, http.StatusOK)
}

// List returns every message for admins, filtered by type and priority.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.coord.ListMessages(r.Context(), auth.UserID(r.Context()), models.MessageFilter{
		Type:     models.MessageType(q.Get("type")),
		Priority: models.MessagePriority(q.Get("priority")),
		Paging:   paging(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, page)
}

// Create publishes a new message.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m services.CreateMessage
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &m, http.StatusCreated)
}

// Update changes the fields present in the body.
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch services.MessagePatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.UpdateMessage{MessageID: chi.URLParam(r, "id"), Updates: patch}, http.StatusOK)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeleteMessage{MessageID: chi.URLParam(r, "id")}, http.StatusNoContent)
}

// Cleanup deletes messages whose end date has passed.
func (h *MessageHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.coord.CleanupMessages(r.Context(), auth.UserID(r.Context()), RequestMeta(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]any{"message": "Expired messages cleaned up", "deletedCount": n})
}
