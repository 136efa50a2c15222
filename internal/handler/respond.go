package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"deck-backend/internal/content"
	"deck-backend/internal/generator"
	"deck-backend/internal/schema"
	"deck-backend/internal/service"
	"deck-backend/internal/validation"
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("writeJSON ERROR:", err)
	}
}

type errorBody struct {
	Error            string `json:"error"`
	ValidationErrors any    `json:"validation_errors,omitempty"`
}

// writeError maps service, parse, upload and generation errors to a status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		parseErr *schema.ParseError
		imageErr *validation.ImageReadError
		invalid  *service.ValidationFailure
		genErr   *generator.GenerationError
	)

	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), ValidationErrors: invalid.Errors})
	case errors.As(err, &parseErr), errors.As(err, &imageErr),
		errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrUnknownField),
		errors.Is(err, service.ErrFieldType),
		errors.Is(err, content.ErrBulletIndex),
		errors.Is(err, validation.ErrEmptyFile),
		errors.Is(err, validation.ErrSourceTooLarge),
		errors.Is(err, validation.ErrInvalidSourceType),
		errors.Is(err, validation.ErrFilenameTooLong):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrUnknownTemplate),
		errors.Is(err, schema.ErrTemplateNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrGenerationInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &genErr):
		status := http.StatusInternalServerError
		if genErr.Remote {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
	default:
		log.Printf("%s %s ERROR: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
