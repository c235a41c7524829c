// Package handlers provides HTTP handlers for the Pitch Analyzer API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// ErrorResponse is the JSON body of every error response. Detail carries
// the human-readable reason shown to users.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message, Detail: message})
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch domain.TypeOf(err) {
	case domain.ErrorTypeValidation, domain.ErrorTypeUnsupportedFormat:
		return http.StatusBadRequest
	case domain.ErrorTypeDocumentRead, domain.ErrorTypeAudioExtraction:
		return http.StatusUnprocessableEntity
	case domain.ErrorTypeResponseParse, domain.ErrorTypeGateway:
		return http.StatusBadGateway
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// failure logs err and writes the mapped error response. Internal causes are
// logged, never returned to the caller.
func failure(w http.ResponseWriter, r *http.Request, logger *observability.Logger, op string, err error) {
	status := StatusFor(err)

	code, message := "internal", "Internal server error"
	var de *domain.DomainError
	if errors.As(err, &de) {
		code, message = string(de.Type), de.Message
	}

	event := logger.WithContext(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logger.WithContext(r.Context()).Error()
	}
	event.Err(err).Str("operation", op).Int("status", status).Msg("Request failed")

	writeError(w, status, code, message)
}

// filePart returns the multipart part named "file" without reading its
// content, so the file name can be checked first.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.ValidationError("A multipart form with a file field is required.", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, domain.ValidationError("A file field is required.", nil)
		}
		if err != nil {
			return nil, domain.ValidationError("Invalid multipart body.", err)
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}
