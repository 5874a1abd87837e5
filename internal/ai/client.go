package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. Order is significant, most
// recent last.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation to a text-generation endpoint and
// returns the raw text of the first completion.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// Providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

const deepSeekName = "DeepSeek"

// Temperature is used for every completion call.
const Temperature = 0.3

// Config holds the completion provider settings. It is read once at
// startup and passed to New.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// DefaultConfig returns the DeepSeek defaults without an API key.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderDeepSeek,
		BaseURL:  "https://api.deepseek.com",
		Model:    "deepseek-chat",
	}
}

// HTTPCompleter talks to an OpenAI-compatible /chat/completions endpoint.
type HTTPCompleter struct {
	cfg  Config
	http *http.Client
}

// NewHTTPCompleter creates a completer for cfg. httpClient may be nil.
func NewHTTPCompleter(cfg Config, httpClient *http.Client) (*HTTPCompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigurationError{Setting: "DEEPSEEK_API_KEY"}
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPCompleter{cfg: cfg, http: httpClient}, nil
}

// Model returns the configured model identifier.
func (c *HTTPCompleter) Model() string {
	return c.cfg.Model
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs one request/response exchange. It does not retry.
func (c *HTTPCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Provider: deepSeekName, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close completion response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: deepSeekName, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Provider: deepSeekName, Status: resp.StatusCode, Body: string(data)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Warn("Unexpected completion response shape", "error", err)
		return "", nil
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
