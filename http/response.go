package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/auth"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	if kind, ok := auth.KindOf(err); ok {
		if kind.Transient() {
			slog.Error("authentication unavailable", "error", err)
			WriteError(w, http.StatusServiceUnavailable, kind.String(), "Authentication service unavailable")
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		WriteError(w, http.StatusUnauthorized, kind.String(), "Token invalid")
		return
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, potatosync.ErrInvalidName):
		WriteError(w, http.StatusBadRequest, CodeInvalidFilename, "Invalid filename")
	case errors.Is(err, potatosync.ErrExceededLimit):
		WriteError(w, http.StatusBadRequest, CodeExceededLimit, "File limit exceeded")
	case errors.Is(err, potatosync.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeFileDoesntExist, "File doesn't exist")
	case errors.As(err, &tooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Upload exceeds maximum size")
	case errors.Is(err, potatosync.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid input")
	case errors.Is(err, potatosync.ErrPartialDelete):
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, CodePartialBulkDelete, "Some files could not be deleted")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
