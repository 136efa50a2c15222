package handler

import (
	"bytes"
	"net/http"
	"path"
	"strconv"
	"strings"

	"deck-backend/internal/models"
	"deck-backend/internal/preview"

	"github.com/gorilla/mux"
)

func (h *EditorHandler) previewSlides(r *http.Request) (string, []models.PreviewSlide, error) {
	id, err := sessionID(r)
	if err != nil {
		return "", nil, err
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		return "", nil, err
	}
	snap := view.Session.Snapshot
	first := snap.GlobalFirstSlide
	return snap.Template.Name, preview.Build(snap.Template, snap.Content, h.Service.Theme, &first), nil
}

func (h *EditorHandler) Preview(w http.ResponseWriter, r *http.Request) {
	_, slides, err := h.previewSlides(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slides)
}

func (h *EditorHandler) PreviewPanel(w http.ResponseWriter, r *http.Request) {
	title, slides, err := h.previewSlides(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	base := strings.TrimSuffix(r.URL.Path, ".html")

	var buf bytes.Buffer
	if err := preview.RenderPanel(&buf, title, base, slides); err != nil {
		writeError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// PreviewFullscreen renders slide {index} of the carousel. Out-of-range indexes
// are clamped to the nearest slide.
func (h *EditorHandler) PreviewFullscreen(w http.ResponseWriter, r *http.Request) {
	title, slides, err := h.previewSlides(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, _ := strconv.Atoi(mux.Vars(r)["index"])
	base := path.Dir(r.URL.Path)

	var buf bytes.Buffer
	c := preview.OpenCarousel(len(slides), index)
	if err := preview.RenderFullscreen(&buf, title, base, base+".html", slides, c); err != nil {
		writeError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
