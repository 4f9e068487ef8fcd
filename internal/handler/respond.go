package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/imagedrop/imagedrop/internal/repository"
	"github.com/imagedrop/imagedrop/internal/service"
)

// Error kinds surfaced to API callers
const (
	KindUnauthorized = "unauthorized"
	KindValidation   = "validation_error"
	KindNotFound     = "not_found"
	KindInternal     = "internal_error"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// RespondJSON writes v as a JSON response with the given status
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// RespondError writes a JSON error envelope with the given status and kind
func RespondError(w http.ResponseWriter, status int, kind, message string) {
	RespondJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: message}})
}

// RespondServiceError maps service-layer errors onto HTTP statuses and
// error kinds. Unrecognized errors become opaque internal errors; their
// detail is logged server-side, never sent to the caller.
func RespondServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		RespondError(w, http.StatusBadRequest, KindValidation, validationErr.Error())
	case errors.Is(err, repository.ErrFileNotFound):
		RespondError(w, http.StatusNotFound, KindNotFound, "file not found")
	case errors.Is(err, repository.ErrTokenNotFound):
		RespondError(w, http.StatusNotFound, KindNotFound, "token not found")
	case errors.Is(err, service.ErrStorageSigning):
		slog.Error("storage signing failed", "error", err)
		RespondError(w, http.StatusInternalServerError, KindInternal, "failed to generate upload URL")
	default:
		slog.Error("request failed", "error", err)
		RespondError(w, http.StatusInternalServerError, KindInternal, "internal server error")
	}
}
