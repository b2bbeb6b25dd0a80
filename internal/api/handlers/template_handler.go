package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/services"
)

// CatalogHandler handles HTTP requests for canned-response categories and templates.
type CatalogHandler struct {
	responder
	coord services.CoordinatorProvider
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(coord services.CoordinatorProvider, detailed bool) *CatalogHandler {
	return &CatalogHandler{responder: responder{detailed: detailed}, coord: coord}
}

// GetAll returns every category with its templates.
func (h *CatalogHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	view, err := h.coord.View(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, view.Categories)
}

// Create handles the request to create a new category.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m services.CreateCategory
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &m, http.StatusCreated)
}

// Update renames a category.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var m services.UpdateCategory
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	m.CategoryID = chi.URLParam(r, "id")
	h.mutate(w, r, h.coord, &m, http.StatusOK)
}

// Delete removes a category and all of its templates.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeleteCategory{CategoryID: chi.URLParam(r, "id")}, http.StatusNoContent)
}

// CreateTemplate appends a template to a category.
func (h *CatalogHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t services.TemplateInput
	if err := decode(r, &t); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &services.CreateTemplate{CategoryID: chi.URLParam(r, "id"), Template: t}, http.StatusCreated)
}

// UpdateTemplate replaces a template's text and tags.
func (h *CatalogHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var t services.TemplatePatch
	if err := decode(r, &t); err != nil {
		h.fail(w, r, err)
		return
	}
	t.ID = chi.URLParam(r, "templateId")
	h.mutate(w, r, h.coord, &services.UpdateTemplate{CategoryID: chi.URLParam(r, "id"), Template: t}, http.StatusOK)
}

// DeleteTemplate removes one template.
func (h *CatalogHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.coord, &services.DeleteTemplate{
		CategoryID: chi.URLParam(r, "id"),
		TemplateID: chi.URLParam(r, "templateId"),
	}, http.StatusNoContent)
}

// Import replaces the whole catalog with the uploaded document.
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	var m services.ReplaceCategories
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, h.coord, &m, http.StatusOK)
}
