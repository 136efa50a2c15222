package handler

import (
	"io"
	"net/http"

	"deck-backend/internal/models"
	"deck-backend/internal/schema"

	"github.com/gorilla/mux"
)

type templateSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Aspect      models.Aspect `json:"aspect"`
	SlideCount  int           `json:"slide_count"`
}

func (h *EditorHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list := h.Catalog.List()
	out := make([]templateSummary, 0, len(list))
	for _, t := range list {
		out = append(out, templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Aspect:      t.Aspect,
			SlideCount:  len(t.Slides),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTemplate returns the template in interchange form.
func (h *EditorHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Catalog.Get(mux.Vars(r)["tid"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := schema.Serialize(t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, text)
}

// ParseTemplate checks a schema document without touching any session and
// reports the placeholders it defines.
func (h *EditorHandler) ParseTemplate(w http.ResponseWriter, r *http.Request) {
	name, data, err := readSchemaUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := schema.Decode(name, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"template":     t,
		"placeholders": schema.Placeholders(t),
	})
}
