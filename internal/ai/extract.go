package ai

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

var (
	fencedBlock = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)```")
	objectSpan  = regexp.MustCompile(`\{[\s\S]*\}`)
	arraySpan   = regexp.MustCompile(`\[[\s\S]*\]`)
)

// ExtractJSON recovers a JSON value embedded in model output. It tries, in
// order: the first fenced code block, the span from the first '{' to the
// last '}', the span from the first '[' to the last ']', and the whole text.
// It returns the first candidate that parses, or ok=false.
func ExtractJSON(text string) (value any, ok bool) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, false
	}

	if m := fencedBlock.FindStringSubmatch(clean); m != nil && strings.TrimSpace(m[1]) != "" {
		v, err := parseJSON(strings.TrimSpace(m[1]))
		if err == nil {
			return v, true
		}
		slog.Debug("fenced block is not JSON", "error", err)
	}

	if m := objectSpan.FindString(clean); m != "" {
		if v, err := parseJSON(m); err == nil {
			return v, true
		}
	}

	if m := arraySpan.FindString(clean); m != "" {
		if v, err := parseJSON(m); err == nil {
			return v, true
		}
	}

	if v, err := parseJSON(clean); err == nil {
		return v, true
	}
	return nil, false
}

// ExtractInto extracts a JSON value from text and decodes it into dst.
// It reports whether both steps succeeded.
func ExtractInto(text string, dst any) bool {
	v, ok := ExtractJSON(text)
	if !ok {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// extractArray is ExtractJSON for callers that expect an array. A single
// element array of objects is picked up by the object step first, so the
// array span is retried on its own.
func extractArray(text string) ([]any, bool) {
	if v, ok := ExtractJSON(text); ok {
		if arr, isArr := v.([]any); isArr {
			return arr, true
		}
	}
	if m := arraySpan.FindString(text); m != "" {
		if v, err := parseJSON(m); err == nil {
			if arr, isArr := v.([]any); isArr {
				return arr, true
			}
		}
	}
	return nil, false
}

func parseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
