// Package api provides HTTP handlers for the Celiscope API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/celiscope/celiscope/internal/ai"
	"github.com/celiscope/celiscope/internal/media"
	"github.com/celiscope/celiscope/internal/shared"
)

const (
	maxJSONBody      = 50 << 20
	unexpectedFailed = "Случилась непредвиденная ошибка"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"error": message, "status": status})
}

// WriteError reports err with the status it carries. Unknown errors
// become a 500 that includes the error text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := shared.AsError(err); ok {
		slog.Warn("Request failed", "method", r.Method, "path", r.URL.Path, "status", e.Status, "error", e.Message)
		Error(w, e.Status, e.Message)
		return
	}

	var (
		cfgErr       *ai.ConfigurationError
		upstreamErr  *ai.UpstreamError
		transportErr *ai.TransportError
	)
	switch {
	case errors.As(err, &cfgErr):
		slog.Error("AI is not configured", "path", r.URL.Path, "error", err)
		Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstreamErr), errors.As(err, &transportErr):
		slog.Error("AI request failed", "path", r.URL.Path, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("Unexpected error", "method", r.Method, "path", r.URL.Path, "error", err)
		JSON(w, http.StatusInternalServerError, map[string]any{
			"error":   unexpectedFailed,
			"message": err.Error(),
			"status":  http.StatusInternalServerError,
		})
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return shared.NewError(http.StatusRequestEntityTooLarge, "Слишком большой запрос")
		}
		return shared.BadRequest(fmt.Sprintf("Некорректный JSON: %v", err))
	}
	return nil
}

// idParam parses a numeric URL parameter.
func idParam(r *http.Request, name, invalid string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.BadRequest(invalid)
	}
	return id, nil
}

// upload is a file read from a multipart form.
type upload struct {
	data     []byte
	mimeType string
}

// parseMultipart parses a multipart form limited to the upload size. Plain
// non-multipart bodies are accepted and yield no files.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(media.MaxUploadSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return shared.NewError(http.StatusRequestEntityTooLarge, "Файл слишком большой. Максимальный размер 15MB")
		}
		return shared.BadRequest(fmt.Sprintf("Некорректная форма: %v", err))
	}
	return nil
}

// formFile returns the named file of a parsed multipart form, or nil when
// it was not sent.
func formFile(r *http.Request, field string) (*upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, shared.BadRequest(fmt.Sprintf("Не удалось прочитать файл: %v", err))
	}
	defer f.Close()

	if header.Size > media.MaxUploadSize {
		return nil, shared.NewError(http.StatusRequestEntityTooLarge, "Файл слишком большой. Максимальный размер 15MB")
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &upload{data: data, mimeType: mimeType}, nil
}
