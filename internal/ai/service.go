package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Service implements the AI features on top of a Completer.
type Service struct {
	completer Completer
	observer  Observer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets the call observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces time.Now, used for the dates put into prompts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wraps an existing completer.
func NewService(c Completer, opts ...Option) *Service {
	s := &Service{
		completer: c,
		observer:  NoopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New builds the completer selected by cfg.Provider and wraps it.
func New(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		c, err := NewGeminiCompleter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewService(c, opts...), nil
	case "", ProviderDeepSeek:
		c, err := NewHTTPCompleter(cfg, nil)
		if err != nil {
			return nil, err
		}
		return NewService(c, opts...), nil
	default:
		return nil, &ConfigurationError{Setting: "AI_PROVIDER=" + cfg.Provider}
	}
}

// disabledCompleter fails every call with the error that kept the
// provider from starting.
type disabledCompleter struct {
	err error
}

func (d disabledCompleter) Complete(context.Context, []Message) (string, error) {
	return "", d.err
}

func (disabledCompleter) Model() string { return "disabled" }

// Disabled returns a Service whose calls all fail with err.
func Disabled(err error) *Service {
	return NewService(disabledCompleter{err: err})
}

// Close releases the completer when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Service) chatRaw(ctx context.Context, feature string, messages []Message) (string, error) {
	start := time.Now()
	text, err := s.completer.Complete(ctx, messages)
	s.observer.OnCallComplete(CallEvent{
		Feature:   feature,
		Model:     s.completer.Model(),
		Latency:   time.Since(start),
		Success:   err == nil,
		ErrorCode: errorCode(err),
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *Service) chat(ctx context.Context, feature string, messages []Message) (string, error) {
	text, err := s.chatRaw(ctx, feature, messages)
	if err != nil {
		return "", err
	}
	return Normalize(text), nil
}

func turns(system, prompt string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: prompt},
	}
}

// GoalDescription drafts a one sentence description of a goal.
func (s *Service) GoalDescription(ctx context.Context, in DescriptionInput) (ChatResult, error) {
	text, err := s.chat(ctx, "description", turns(descriptionPrompt(in)))
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Text: text}, nil
}

// taskLimit maps a requested item count onto [1, maxTaskItems]; zero and
// negative counts fall back to defaultMax.
func taskLimit(n int) int {
	switch {
	case n <= 0:
		return defaultMax
	case n > maxTaskItems:
		return maxTaskItems
	}
	return n
}

// Tasks generates up to MaxItems steps, at most maxTaskItems. A reply that
// is not a JSON array is split into lines instead.
func (s *Service) Tasks(ctx context.Context, in TasksInput) ([]TaskItem, error) {
	max := taskLimit(in.MaxItems)
	raw, err := s.chatRaw(ctx, "tasks", turns(tasksPrompt(in, max, s.now())))
	if err != nil {
		return nil, err
	}

	if arr, ok := extractArray(raw); ok {
		if items := tasksFromArray(arr, max); len(items) > 0 {
			return items, nil
		}
	}

	lines := SanitizeListLines(strings.Split(raw, "\n"))
	lines = firstN(lines, max)
	items := make([]TaskItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, TaskItem{Description: line})
	}
	return items, nil
}

func tasksFromArray(arr []any, max int) []TaskItem {
	arr = firstN(arr, max)
	items := make([]TaskItem, 0, len(arr))
	for _, v := range arr {
		var description, deadline string
		switch t := v.(type) {
		case map[string]any:
			description = strings.TrimSpace(stringify(t["description"]))
			deadline = strings.TrimSpace(stringify(t["deadline"]))
		default:
			description = strings.TrimSpace(stringify(t))
		}
		if description == "" {
			continue
		}
		item := TaskItem{Description: description}
		if deadline != "" {
			item.Deadline = &deadline
		}
		items = append(items, item)
	}
	return items
}

// stringify renders a decoded JSON value as text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Motivation writes a short progress message.
func (s *Service) Motivation(ctx context.Context, in MotivationInput) (ChatResult, error) {
	text, err := s.chat(ctx, "motivation", turns(motivationPrompt(in)))
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Text: text}, nil
}

// WeeklyReport narrates a condensed digest of the week.
func (s *Service) WeeklyReport(ctx context.Context, in WeeklyReportInput) (ChatResult, error) {
	text, err := s.chat(ctx, "weekly_report", turns(weeklyReportPrompt(in, s.now())))
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Text: text}, nil
}

// Templates returns goal templates, one per reply line.
func (s *Service) Templates(ctx context.Context) ([]string, error) {
	text, err := s.chat(ctx, "templates", turns(templatesPrompt()))
	if err != nil {
		return nil, err
	}
	return SanitizeListLines(strings.Split(text, "\n")), nil
}

// GoalFromTemplate drafts a description for the template and then
// generates tasks with that description as context.
func (s *Service) GoalFromTemplate(ctx context.Context, in TemplateInput) (GoalFromTemplateResult, error) {
	title := strings.TrimSpace(in.Template)
	description, err := s.chat(ctx, "template_description", turns(templateDescriptionPrompt(title, in, s.now())))
	if err != nil {
		return GoalFromTemplateResult{}, err
	}

	max := taskLimit(in.MaxItems)
	tasks, err := s.Tasks(ctx, TasksInput{
		Title:    title,
		Context:  description,
		MaxItems: max,
		Deadline: in.Deadline,
	})
	if err != nil {
		return GoalFromTemplateResult{}, err
	}
	return GoalFromTemplateResult{
		Title:       title,
		Description: Normalize(description),
		Tasks:       tasks,
	}, nil
}

type chatReply struct {
	SelectedGoalTitle string `json:"selectedGoalTitle"`
	Answer            string `json:"answer"`
}

// ChatAboutGoals answers a question about the user's goals. The model is
// asked for {"selectedGoalTitle","answer"}; plain text replies are used
// as the answer. The focus, when set, is the selected goal; otherwise the
// goal is guessed from the text.
func (s *Service) ChatAboutGoals(ctx context.Context, in ChatInput) (ChatResult, error) {
	history := make([]Message, 0, chatHistoryCap+2)
	for _, h := range lastTurns(in.History, chatHistoryCap) {
		role := RoleUser
		if h.Role == RoleAssistant {
			role = RoleAssistant
		}
		history = append(history, Message{Role: role, Content: Normalize(h.Content)})
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: chatSystemPrompt(in.Focus != "")})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: chatUserPrompt(in, history)})

	raw, err := s.chatRaw(ctx, "chat", messages)
	if err != nil {
		return ChatResult{}, err
	}

	var reply chatReply
	if ExtractInto(raw, &reply) && strings.TrimSpace(reply.Answer) != "" {
		selected := strings.TrimSpace(reply.SelectedGoalTitle)
		if selected == "" {
			selected = in.Focus
		}
		return ChatResult{
			Text:              Normalize(reply.Answer),
			SelectedGoalTitle: selected,
		}, nil
	}

	text := Normalize(raw)
	if text == "" {
		return ChatResult{Text: chatApology}, nil
	}
	result := ChatResult{Text: text, SelectedGoalTitle: in.Focus}
	if result.SelectedGoalTitle == "" {
		result.SelectedGoalTitle = guessGoal(text, in.Goals)
	}
	return result, nil
}

// guessGoal returns the first goal title contained in text, ignoring case,
// or the first goal when none is mentioned.
func guessGoal(text string, goals []ChatGoal) string {
	if len(goals) == 0 {
		return ""
	}
	lower := strings.ToLower(text)
	for _, g := range goals {
		title := strings.TrimSpace(g.Title)
		if title != "" && strings.Contains(lower, strings.ToLower(title)) {
			return title
		}
	}
	return goals[0].Title
}

// TriggerMessage writes a short message for an event. Unknown types get
// the base prompt only.
func (s *Service) TriggerMessage(ctx context.Context, in TriggerInput) (ChatResult, error) {
	text, err := s.chat(ctx, "trigger_"+strings.ToLower(string(in.Type)), turns(triggerPrompt(in, s.now())))
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Text: text}, nil
}
