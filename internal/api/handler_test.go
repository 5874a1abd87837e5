//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celiscope/celiscope/internal/ai"
	"github.com/celiscope/celiscope/internal/shared"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "bar", got["foo"])
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   map[string]any
	}{
		{
			name:   "http error",
			err:    fmt.Errorf("wrapped: %w", shared.NotFound("Цель не найдена")),
			status: http.StatusNotFound,
			body:   map[string]any{"error": "Цель не найдена", "status": float64(404)},
		},
		{
			name:   "ai not configured",
			err:    &ai.ConfigurationError{Setting: "DEEPSEEK_API_KEY"},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "upstream failure",
			err:    &ai.UpstreamError{Provider: "deepseek", Status: 500, Body: "boom"},
			status: http.StatusBadGateway,
		},
		{
			name:   "transport failure",
			err:    fmt.Errorf("chat: %w", &ai.TransportError{Provider: "deepseek", Err: errors.New("dial")}),
			status: http.StatusBadGateway,
		},
		{
			name:   "unexpected",
			err:    errors.New("disk on fire"),
			status: http.StatusInternalServerError,
			body: map[string]any{
				"error":   unexpectedFailed,
				"message": "disk on fire",
				"status":  float64(500),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/x", nil)
			WriteError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, float64(tt.status), got["status"])
			if tt.body != nil {
				assert.Equal(t, tt.body, got)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &v))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := decodeJSON(httptest.NewRecorder(), r, &v)
	e, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
}
