package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/services"
)

// AdminHandler handles user management for admins.
type AdminHandler struct {
	responder
	coord services.CoordinatorProvider
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(coord services.CoordinatorProvider, detailed bool) *AdminHandler {
	return &AdminHandler{responder: responder{detailed: detailed}, coord: coord}
}

// ListUsers returns every account.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.coord.ListUsers(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, users)
}

// CreateUser creates an account with a chosen role.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.NewUserInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.CreateUser{User: in}, http.StatusCreated)
}

// BulkCreate creates user-role accounts whose initial password is the username.
func (h *AdminHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var m services.BulkCreateUsers
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &m, http.StatusCreated)
}

// UpdateRole changes a user's role.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Role string `json:"role"`
	}
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.UpdateUser{
		UserID:  chi.URLParam(r, "id"),
		Updates: services.UserUpdates{Role: payload.Role},
	}, http.StatusNoContent)
}

// SetPassword sets a user's password to a chosen value.
func (h *AdminHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Password string `json:"password"`
	}
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if payload.Password == "" {
		h.fail(w, r, apperr.Validation("Password is required"))
		return
	}
	h.mutate(w, r, h.coord, &services.UpdateUser{
		UserID:  chi.URLParam(r, "id"),
		Updates: services.UserUpdates{Password: payload.Password},
	}, http.StatusNoContent)
}

// ResetPassword replaces a user's password with a generated temporary one.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.ResetUserPassword{UserID: chi.URLParam(r, "id")}, http.StatusOK)
}

// DeleteUser removes an account with its private notes and sessions.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeleteUser{UserID: chi.URLParam(r, "id")}, http.StatusNoContent)
}
