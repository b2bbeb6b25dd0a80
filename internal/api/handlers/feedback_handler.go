package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/services"
)

// FeedbackHandler handles suggestions and reports from team members.
type FeedbackHandler struct {
	responder
	coord services.CoordinatorProvider
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(coord services.CoordinatorProvider, detailed bool) *FeedbackHandler {
	return &FeedbackHandler{responder: responder{detailed: detailed}, coord: coord}
}

func (h *FeedbackHandler) list(w http.ResponseWriter, r *http.Request, mine bool) {
	q := r.URL.Query()
	userID := auth.UserID(r.Context())
	f := models.FeedbackFilter{
		Type:   models.FeedbackType(q.Get("type")),
		Status: models.FeedbackStatus(q.Get("status")),
		Paging: paging(r),
	}
	if mine {
		f.UserID = userID
	}
	page, err := h.coord.ListFeedback(r.Context(), userID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, page)
}

// List returns the feedback the caller may see, filtered by type and status.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// Mine returns the caller's own feedback.
func (h *FeedbackHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var m services.SubmitFeedback
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &m, http.StatusCreated)
}

// UpdateStatus records a review decision.
func (h *FeedbackHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status        string `json:"status"`
		AdminResponse string `json:"adminResponse"`
	}
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.UpdateFeedbackStatus{
		FeedbackID:    chi.URLParam(r, "id"),
		Status:        payload.Status,
		AdminResponse: payload.AdminResponse,
	}, http.StatusOK)
}

// Vote casts, switches or withdraws the caller's vote.
func (h *FeedbackHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Vote string `json:"vote"`
	}
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.VoteFeedback{FeedbackID: chi.URLParam(r, "id"), Vote: payload.Vote}, http.StatusOK)
}

func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeleteFeedback{FeedbackID: chi.URLParam(r, "id")}, http.StatusNoContent)
}
