package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"deck-backend/internal/editor"
	"deck-backend/internal/generator"
	"deck-backend/internal/models"
	"deck-backend/internal/schema"
	"deck-backend/internal/service"
	"deck-backend/internal/storage"
	"deck-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxSchemaSize bounds an imported schema document.
const maxSchemaSize = 1 << 20

type EditorHandler struct {
	Service *service.SessionService
	Catalog *schema.Catalog
	Storage storage.Storage
}

// Register mounts every route on r, which is expected to be the /api/v1 subrouter.
func (h *EditorHandler) Register(r *mux.Router) {
	r.HandleFunc("/templates", h.ListTemplates).Methods("GET")
	r.HandleFunc("/templates/parse", h.ParseTemplate).Methods("POST")
	r.HandleFunc("/templates/{tid}", h.GetTemplate).Methods("GET")

	r.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	r.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/reset", h.ResetSession).Methods("POST")

	r.HandleFunc("/sessions/{id}/template", h.SelectTemplate).Methods("PUT")
	r.HandleFunc("/sessions/{id}/template/import", h.ImportTemplate).Methods("POST")
	r.HandleFunc("/sessions/{id}/template/export", h.ExportTemplate).Methods("GET")

	r.HandleFunc("/sessions/{id}/content/{slide}/{field}", h.SetField).Methods("PUT")
	r.HandleFunc("/sessions/{id}/content/{slide}/{field}/bullets", h.AddBullet).Methods("POST")
	r.HandleFunc("/sessions/{id}/content/{slide}/{field}/bullets/{index:[0-9]+}", h.SetBullet).Methods("PUT")
	r.HandleFunc("/sessions/{id}/content/{slide}/{field}/bullets/{index:[0-9]+}", h.RemoveBullet).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/content/{slide}/{field}/image", h.UploadFieldImage).Methods("POST")

	r.HandleFunc("/sessions/{id}/first-slide", h.SetFirstSlide).Methods("PUT")
	r.HandleFunc("/sessions/{id}/first-slide/image", h.UploadFirstSlideImage).Methods("POST")
	r.HandleFunc("/sessions/{id}/first-slide/image", h.ClearFirstSlideImage).Methods("DELETE")

	r.HandleFunc("/sessions/{id}/source", h.UploadSource).Methods("POST")
	r.HandleFunc("/sessions/{id}/source", h.RemoveSource).Methods("DELETE")

	r.HandleFunc("/sessions/{id}/validation", h.Validation).Methods("GET")
	r.HandleFunc("/sessions/{id}/editor", h.EditorForm).Methods("GET")
	r.HandleFunc("/sessions/{id}/preview", h.Preview).Methods("GET")
	r.HandleFunc("/sessions/{id}/preview.html", h.PreviewPanel).Methods("GET")
	r.HandleFunc("/sessions/{id}/preview/{index:[0-9]+}.html", h.PreviewFullscreen).Methods("GET")

	r.HandleFunc("/sessions/{id}/generate", h.Generate).Methods("POST")
}

// sessionID reads {id}. A malformed id can never name a session.
func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, service.ErrSessionNotFound
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func bulletIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return 0, fmt.Errorf("%w: bad bullet index", errBadRequest)
	}
	return i, nil
}

// respondView writes the result of a session operation.
func respondView(w http.ResponseWriter, r *http.Request, status int, view *service.SessionView, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

func (h *EditorHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Service.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.Get(r.Context(), session.SessionID)
	respondView(w, r, http.StatusCreated, view, err)
}

func (h *EditorHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *EditorHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.Reset(r.Context(), id)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		TemplateID string `json:"template_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.SelectTemplate(r.Context(), id, body.TemplateID)
	respondView(w, r, http.StatusOK, view, err)
}

// ImportTemplate accepts a multipart "file" field or the schema text as the raw
// body. YAML is recognised by file extension, a ?name= query or the content type.
func (h *EditorHandler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, data, err := readSchemaUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.ImportSchema(r.Context(), id, name, data)
	respondView(w, r, http.StatusOK, view, err)
}

func readSchemaUpload(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSchemaSize); err != nil {
			return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("%w: missing file", errBadRequest)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxSchemaSize))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxSchemaSize))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "schema.json"
		if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
			name = "schema.yaml"
		}
	}
	return name, data, nil
}

func (h *EditorHandler) ExportTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fileName, text, err := h.Service.ExportSchema(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	io.WriteString(w, text)
}

func (h *EditorHandler) SetField(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Value models.Value `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	view, err := h.Service.SetField(r.Context(), id, vars["slide"], vars["field"], body.Value)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) AddBullet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	view, err := h.Service.AddBullet(r.Context(), id, vars["slide"], vars["field"])
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) SetBullet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := bulletIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	view, err := h.Service.SetBullet(r.Context(), id, vars["slide"], vars["field"], index, body.Value)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) RemoveBullet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := bulletIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	view, err := h.Service.RemoveBullet(r.Context(), id, vars["slide"], vars["field"], index)
	respondView(w, r, http.StatusOK, view, err)
}

// readImage turns the multipart "image" field into a data URI.
func readImage(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(validation.MaxImageSize); err != nil {
		return "", &validation.ImageReadError{Err: err}
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", &validation.ImageReadError{Err: fmt.Errorf("missing image: %w", err)}
	}
	defer file.Close()
	return validation.ReadImageDataURL(file, header)
}

func (h *EditorHandler) UploadFieldImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dataURL, err := readImage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	view, err := h.Service.SetImage(r.Context(), id, vars["slide"], vars["field"], dataURL)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) SetFirstSlide(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Enabled == nil {
		writeError(w, r, fmt.Errorf("%w: \"enabled\" is required", errBadRequest))
		return
	}
	view, err := h.Service.SetFirstSlideEnabled(r.Context(), id, *body.Enabled)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) UploadFirstSlideImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dataURL, err := readImage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.SetFirstSlideImage(r.Context(), id, dataURL)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) ClearFirstSlideImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.SetFirstSlideImage(r.Context(), id, "")
	respondView(w, r, http.StatusOK, view, err)
}

// UploadSource stores a .pptx source file. Only its name and size are used.
func (h *EditorHandler) UploadSource(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing file", errBadRequest))
		return
	}
	defer file.Close()

	if err := validation.ValidateSourceUpload(header); err != nil {
		writeError(w, r, err)
		return
	}
	fileURL, err := h.Storage.Upload(file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.Service.AttachSourceFile(r.Context(), id, models.SourceFile{
		Name:       header.Filename,
		Size:       header.Size,
		URL:        fileURL,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		if rmErr := h.Storage.Remove(fileURL); rmErr != nil {
			log.Printf("UploadSource: remove %s: %v", fileURL, rmErr)
		}
	}
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.RemoveSourceFile(r.Context(), id)
	respondView(w, r, http.StatusOK, view, err)
}

func (h *EditorHandler) Validation(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":             len(view.Errors) == 0,
		"validation_errors": view.Errors,
	})
}

func (h *EditorHandler) EditorForm(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := view.Session.Snapshot
	writeJSON(w, http.StatusOK, editor.BuildForm(snap.Template, snap.Content, view.Errors))
}

func (h *EditorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sent := false
	err = h.Service.Generate(r.Context(), id, func(out *service.Generated) error {
		w.Header().Set("Content-Type", generator.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
		w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
		sent = true
		_, err := w.Write(out.Data)
		return err
	})
	if err != nil {
		if sent {
			log.Println("Generate ERROR: sending deck:", err)
			return
		}
		writeError(w, r, err)
	}
}
