// Package httputil holds the JSON response and request helpers shared by the
// HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"eidgate/pkg/platform/sentinel"
)

const (
	CodeBadRequest  = "bad_request"
	CodeInvalid     = "invalid_request"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal_error"
)

// DefaultMaxBodyBytes bounds request bodies decoded by DecodeJSON.
const DefaultMaxBodyBytes = 64 << 10

// Error is an HTTP-facing error with a stable code.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

func BadRequest(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Description: description}
}

func Invalid(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeInvalid, Description: description}
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err to a JSON error response. Internal errors never
// expose a description.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *Error
	switch {
	case errors.As(err, &httpErr):
		resp := errorResponse{Error: httpErr.Code}
		if httpErr.Status < http.StatusInternalServerError {
			resp.Description = httpErr.Description
		}
		WriteJSON(w, httpErr.Status, resp)
	case errors.Is(err, sentinel.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorResponse{Error: CodeNotFound})
	case errors.Is(err, sentinel.ErrInvalidState):
		WriteJSON(w, http.StatusConflict, errorResponse{Error: CodeConflict})
	case errors.Is(err, sentinel.ErrStopped),
		errors.Is(err, sentinel.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: CodeUnavailable})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: CodeInternal})
	}
}

// DecodeJSON decodes a bounded JSON body into a new T. Unknown fields are
// rejected.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	body := http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var v T
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, BadRequest("request body is required")
		}
		return nil, BadRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return &v, nil
}
