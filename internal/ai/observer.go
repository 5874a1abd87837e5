package ai

import (
	"log/slog"
	"time"
)

// CallEvent records metadata about a single completion call.
type CallEvent struct {
	Feature   string
	Model     string
	Latency   time.Duration
	Success   bool
	ErrorCode string
}

// Observer receives events about completion calls.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"feature", event.Feature,
		"model", event.Model,
		"latency_ms", event.Latency.Milliseconds(),
	}
	if !event.Success {
		o.logger.Warn("AI completion failed", append(attrs, "error_code", event.ErrorCode)...)
		return
	}
	o.logger.Info("AI completion", attrs...)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
