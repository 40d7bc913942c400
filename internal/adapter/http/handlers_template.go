package http

import (
	"net/http"

	"github.com/arbiterhq/arbiter/internal/domain/template"
)

// ListTemplates returns built-in and custom debate templates.
func (h *Handlers) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.templates.List())
}

// GetTemplate returns one template by id.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// CreateTemplate registers a custom template.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := readJSON[template.Template](w, r)
	if !ok {
		return
	}
	if err := h.templates.Add(tpl); err != nil {
		writeDomainError(w, err, "template not created")
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// DeleteTemplate removes a custom template.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Remove(urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
