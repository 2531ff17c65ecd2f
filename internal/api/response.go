package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"docquery/internal/executor"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIResponse defines the base structure for all JSON responses.
type APIResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       any             `json:"data,omitempty"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// PaginationInfo describes the page returned by the list endpoint.
type PaginationInfo struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// SendJSONResponse writes an APIResponse with the given status code.
func SendJSONResponse(w http.ResponseWriter, success bool, message string, data any, statusCode int) {
	writeJSON(w, APIResponse{Success: success, Message: message, Data: data}, statusCode)
}

func writeJSON(w http.ResponseWriter, resp APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// statusForError maps query errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, executor.ErrInvalidRegex):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestDone answers 503 when the request context is already finished.
func requestDone(w http.ResponseWriter, r *http.Request) bool {
	select {
	case <-r.Context().Done():
		slog.Warn("Request cancelled or timed out", "path", r.URL.Path, "error", r.Context().Err())
		SendJSONResponse(w, false, "Request cancelled or timed out", nil, http.StatusServiceUnavailable)
		return true
	default:
		return false
	}
}
