package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiName = "Gemini"

// GeminiCompleter sends conversations to Google Gemini.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a Gemini client for cfg.
func NewGeminiCompleter(ctx context.Context, cfg Config) (*GeminiCompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigurationError{Setting: "GEMINI_API_KEY"}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Model returns the configured model identifier.
func (c *GeminiCompleter) Model() string {
	return c.model
}

// Close releases the underlying client.
func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}

// Complete maps system messages to the system instruction, earlier turns to
// chat history and sends the last turn.
func (c *GeminiCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	system, history, last := splitForGemini(messages)

	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(Temperature)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return geminiText(resp), nil
}

func splitForGemini(messages []Message) (string, []*genai.Content, string) {
	var system []string
	var turns []Message
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}

	var last string
	if n := len(turns); n > 0 {
		last = turns[n-1].Content
		turns = turns[:n-1]
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return strings.Join(system, "\n\n"), history, last
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// httpCoder is implemented by the API errors of the Google client libraries.
type httpCoder interface {
	HTTPCode() int
}

func classifyGeminiError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &UpstreamError{Provider: geminiName, Status: gErr.Code, Body: gErr.Message}
	}
	var coded httpCoder
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return &UpstreamError{Provider: geminiName, Status: coded.HTTPCode(), Body: err.Error()}
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &UpstreamError{Provider: geminiName, Status: http.StatusUnprocessableEntity, Body: blocked.Error()}
	}
	return &TransportError{Provider: geminiName, Err: err}
}
