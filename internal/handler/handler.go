// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/linkhub/linkhub/internal/model"
)

// Handler serves the fallback routes shared by the whole API.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the uniform {success:false, message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Success: false, Message: message})
}

// requestError is a client error found while decoding a request body.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

// decodeJSON decodes exactly one JSON object from the body into dst.
// Unknown fields, trailing data and non-JSON content types are rejected.
func decodeJSON(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType := strings.TrimSpace(strings.Split(ct, ";")[0])
		if !strings.EqualFold(mediaType, "application/json") {
			return &requestError{status: http.StatusUnsupportedMediaType, message: "Content-Type must be application/json"}
		}
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr   *json.SyntaxError
			typeErr     *json.UnmarshalTypeError
			maxBytesErr *http.MaxBytesError
		)
		switch {
		case errors.As(err, &maxBytesErr):
			return &requestError{status: http.StatusRequestEntityTooLarge, message: "Request body too large"}
		case errors.Is(err, io.EOF):
			return &requestError{status: http.StatusBadRequest, message: "Request body is required"}
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return &requestError{status: http.StatusBadRequest, message: "Malformed JSON body"}
		case errors.As(err, &typeErr):
			return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf("Field %q has the wrong type", typeErr.Field)}
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return &requestError{status: http.StatusBadRequest, message: "Unknown field " + field}
		default:
			return &requestError{status: http.StatusBadRequest, message: "Malformed JSON body"}
		}
	}

	if dec.More() {
		return &requestError{status: http.StatusBadRequest, message: "Request body must contain a single JSON object"}
	}
	return nil
}
