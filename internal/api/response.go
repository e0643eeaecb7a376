// Package api holds the JSON envelope shared by every HTTP handler.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/cloo-solutions/ragdocs/internal/domain"
)

// SuccessResponse is the envelope for 2xx bodies: {"data": ...}
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the envelope for error bodies: {"error": "..."}
type ErrorResponse struct {
	Error string `json:"error"`
}

var statusByCode = map[domain.ErrorCode]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeUpstream:         http.StatusBadGateway,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

// JSON writes v with the given status. A nil v writes headers only.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps err to an HTTP status through its domain error code.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err as an error envelope. Client errors carry their
// message; server-side failures are logged and answered generically.
func HandleError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status < http.StatusInternalServerError {
		Error(w, status, err.Error())
		return
	}

	log.Printf("api: %d: %v", status, err)
	Error(w, status, http.StatusText(status))
}
