package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/logger"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

type listResponse struct {
	Items      any   `json:"items"`
	TotalCount int32 `json:"total_count"`
	Page       int32 `json:"page"`
	PageSize   int32 `json:"page_size"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a service error onto a status code and error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Code: "VALIDATION_ERROR", Fields: verr.Fields}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"}
	case errors.Is(err, domain.ErrMissingReceipt):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrMissingReceipt.Error(), Code: "MISSING_RECEIPT", Fields: map[string]string{"receipt": "is required"}}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "INVALID_CREDENTIALS"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{Error: domain.ErrUnauthorized.Error(), Code: "FORBIDDEN"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: domain.ErrNotFound.Error(), Code: "NOT_FOUND"}
	case errors.Is(err, domain.ErrStaleCart):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "STALE_CART"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "INVALID_TRANSITION"}
	case errors.Is(err, domain.ErrDataIntegrity):
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "DATA_INTEGRITY"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"}
	}
}

func badRequest(field, msg string) error {
	return domain.FieldError(field, msg)
}

// pageParams reads page and page_size, defaulting to the first page of 20.
func pageParams(r *http.Request) (int32, int32) {
	q := r.URL.Query()
	page, _ := strconv.ParseInt(q.Get("page"), 10, 32)
	pageSize, _ := strconv.ParseInt(q.Get("page_size"), 10, 32)
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return int32(page), int32(pageSize)
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := muxVar(r, name)
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, badRequest(name, "must be a positive integer")
	}
	return int32(id), nil
}
