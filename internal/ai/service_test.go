package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celiscope/celiscope/internal/domain"
)

type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeCompleter) Model() string { return "fake" }

type recordingObserver struct {
	events []CallEvent
}

func (r *recordingObserver) OnCallComplete(e CallEvent) { r.events = append(r.events, e) }

var fixedNow = time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)

func newTestService(replies ...string) (*Service, *fakeCompleter) {
	fc := &fakeCompleter{replies: replies}
	return NewService(fc, WithClock(func() time.Time { return fixedNow })), fc
}

func TestTasksTruncatesArray(t *testing.T) {
	reply := `[
		{"description":"one","deadline":"2025-03-11T00:00:00.000Z"},
		{"description":"two","deadline":"2025-03-12T00:00:00.000Z"},
		{"description":"three"},
		{"description":"four"},
		{"description":"five"}
	]`
	svc, fc := newTestService(reply)

	tasks, err := svc.Tasks(context.Background(), TasksInput{Title: "Run", MaxItems: 3})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "one", tasks[0].Description)
	assert.Equal(t, "two", tasks[1].Description)
	assert.Equal(t, "three", tasks[2].Description)
	require.NotNil(t, tasks[0].Deadline)
	assert.Equal(t, "2025-03-11T00:00:00.000Z", *tasks[0].Deadline)
	assert.Nil(t, tasks[2].Deadline)

	prompt := fc.calls[0][1].Content
	assert.Contains(t, prompt, "Сгенерируй до 3 базовых задач")
	assert.Contains(t, prompt, "Контекст: —")
	assert.Contains(t, prompt, "Срок выполнения всей цели: не задан")
	assert.Contains(t, prompt, "Сегодняшняя дата (UTC): 2025-03-10T08:30:00.000Z")
}

func TestTasksClampsMaxItems(t *testing.T) {
	var parts []string
	for i := 0; i < maxTaskItems+5; i++ {
		parts = append(parts, fmt.Sprintf(`{"description":"step %d"}`, i+1))
	}
	reply := "[" + strings.Join(parts, ",") + "]"

	for _, n := range []int{maxTaskItems + 1, 1 << 40, 1<<62 + 1} {
		svc, fc := newTestService(reply)
		tasks, err := svc.Tasks(context.Background(), TasksInput{Title: "Run", MaxItems: n})
		require.NoError(t, err)
		require.Len(t, tasks, maxTaskItems)
		assert.Equal(t, fmt.Sprintf("step %d", maxTaskItems), tasks[maxTaskItems-1].Description)
		assert.Contains(t, fc.calls[0][1].Content, fmt.Sprintf("Сгенерируй до %d базовых задач", maxTaskItems))
	}

	lines := make([]string, 0, maxTaskItems+5)
	for i := 0; i < maxTaskItems+5; i++ {
		lines = append(lines, fmt.Sprintf("- step %d", i+1))
	}
	svc, _ := newTestService(strings.Join(lines, "\n"))
	tasks, err := svc.Tasks(context.Background(), TasksInput{Title: "Run", MaxItems: 1 << 40})
	require.NoError(t, err)
	assert.Len(t, tasks, maxTaskItems)
}

func TestTasksFallsBackToLines(t *testing.T) {
	svc, _ := newTestService("Here is the plan:\n- Buy shoes\n- Run one mile\n* Stretch daily\n• Rest on Sunday")

	tasks, err := svc.Tasks(context.Background(), TasksInput{Title: "Run", MaxItems: 4})
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, "Here is the plan:", tasks[0].Description)

	svc, _ = newTestService("- Buy shoes\n- Run one mile\n* Stretch daily\n• Rest on Sunday")
	tasks, err = svc.Tasks(context.Background(), TasksInput{Title: "Run"})
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	want := []string{"Buy shoes", "Run one mile", "Stretch daily", "Rest on Sunday"}
	for i, task := range tasks {
		assert.Equal(t, want[i], task.Description)
		assert.Nil(t, task.Deadline)
	}
}

func TestTasksSkipsEmptyDescriptions(t *testing.T) {
	svc, _ := newTestService(`[{"description":"  "},{"description":42},"plain",{"deadline":"x"}]`)

	tasks, err := svc.Tasks(context.Background(), TasksInput{Title: "Run"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "42", tasks[0].Description)
	assert.Equal(t, "plain", tasks[1].Description)
}

func TestChatAboutGoalsParsesJSON(t *testing.T) {
	svc, fc := newTestService(`{"selectedGoalTitle":"Learn Spanish","answer":"**Great job!**"}`)

	res, err := svc.ChatAboutGoals(context.Background(), ChatInput{
		Question: "How am I doing?",
		Goals:    []ChatGoal{{Title: "Run 5k"}, {Title: "Learn Spanish"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ChatResult{Text: "Great job!", SelectedGoalTitle: "Learn Spanish"}, res)

	msgs := fc.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.NotContains(t, msgs[0].Content, "сфокусирован")
	assert.True(t, strings.HasPrefix(msgs[1].Content, "История диалога отсутствует.\n\nВопрос: How am I doing?\nСписок целей:\n1. Run 5k"))
}

func TestChatAboutGoalsFencedJSON(t *testing.T) {
	svc, _ := newTestService("```json\n{\"selectedGoalTitle\":\"Run 5k\",\"answer\":\"Keep it up\"}\n```")

	res, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", Goals: []ChatGoal{{Title: "Run 5k"}}})
	require.NoError(t, err)
	assert.Equal(t, ChatResult{Text: "Keep it up", SelectedGoalTitle: "Run 5k"}, res)
}

func TestChatAboutGoalsFallbacks(t *testing.T) {
	goals := []ChatGoal{{Title: "Learn Spanish"}, {Title: "Run 5k"}}

	t.Run("first goal when none mentioned", func(t *testing.T) {
		svc, _ := newTestService("Just keep going!")
		res, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", Goals: goals})
		require.NoError(t, err)
		assert.Equal(t, ChatResult{Text: "Just keep going!", SelectedGoalTitle: "Learn Spanish"}, res)
	})

	t.Run("mentioned goal", func(t *testing.T) {
		svc, _ := newTestService("Your RUN 5K training looks solid.")
		res, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", Goals: goals})
		require.NoError(t, err)
		assert.Equal(t, "Run 5k", res.SelectedGoalTitle)
	})

	t.Run("focus is the selected goal", func(t *testing.T) {
		svc, fc := newTestService("Try ten minutes a day on Run 5k.")
		res, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", Goals: goals, Focus: "Vocabulary"})
		require.NoError(t, err)
		assert.Equal(t, ChatResult{Text: "Try ten minutes a day on Run 5k.", SelectedGoalTitle: "Vocabulary"}, res)
		assert.Contains(t, fc.calls[0][0].Content, "сфокусирован")
		assert.Contains(t, fc.calls[0][1].Content, "Фокус на задаче: \"Vocabulary\"")
	})

	t.Run("focus fills empty json title", func(t *testing.T) {
		svc, _ := newTestService(`{"selectedGoalTitle":"","answer":"Keep it up."}`)
		res, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", Goals: goals, Focus: "Vocabulary"})
		require.NoError(t, err)
		assert.Equal(t, ChatResult{Text: "Keep it up.", SelectedGoalTitle: "Vocabulary"}, res)
	})

	t.Run("apology on empty reply", func(t *testing.T) {
		svc, _ := newTestService("```\n```")
		res, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", Goals: goals})
		require.NoError(t, err)
		assert.Equal(t, chatApology, res.Text)
		assert.Empty(t, res.SelectedGoalTitle)
	})
}

func TestChatAboutGoalsHistory(t *testing.T) {
	svc, fc := newTestService("ok")
	var history []Message
	for i := 0; i < 14; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history = append(history, Message{Role: role, Content: fmt.Sprintf("**m%d**", i)})
	}
	history = append(history, Message{Role: "tool", Content: "odd"})

	_, err := svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q", History: history})
	require.NoError(t, err)

	msgs := fc.calls[0]
	require.Len(t, msgs, 12)
	assert.Equal(t, Message{Role: RoleAssistant, Content: "m5"}, msgs[1])
	assert.Equal(t, Message{Role: RoleUser, Content: "odd"}, msgs[10])

	last := msgs[11].Content
	assert.Contains(t, last, "Контекст из истории диалога:")
	assert.Contains(t, last, "Последние вопросы пользователя: m10; m12; odd")
	assert.Contains(t, last, "Последние советы ассистента: m11; m13")
	assert.Contains(t, last, "Полная история (последние 6 сообщений):")
	assert.Contains(t, last, "Список целей:\n—")
}

func TestGoalFromTemplateChainsCalls(t *testing.T) {
	svc, fc := newTestService("**Run** a 5k race by summer.", `[{"description":"Buy shoes"}]`)

	res, err := svc.GoalFromTemplate(context.Background(), TemplateInput{Template: " Run 5k ", Deadline: "3 months"})
	require.NoError(t, err)
	assert.Equal(t, "Run 5k", res.Title)
	assert.Equal(t, "Run a 5k race by summer.", res.Description)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "Buy shoes", res.Tasks[0].Description)

	require.Len(t, fc.calls, 2)
	assert.Contains(t, fc.calls[0][1].Content, "Шаблон цели: Run 5k\nКраткое описание: —")
	assert.Contains(t, fc.calls[1][1].Content, "Контекст: Run a 5k race by summer.")
	assert.Contains(t, fc.calls[1][1].Content, "Сгенерируй до 6 базовых задач")
	assert.Contains(t, fc.calls[1][1].Content, "Срок выполнения всей цели: 3 months")
}

func TestTemplatesSplitsLines(t *testing.T) {
	svc, _ := newTestService("1. Read 12 books\n2. **Learn** to swim\n\n3) Save money")
	got, err := svc.Templates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Read 12 books", "Learn to swim", "Save money"}, got)
}

func TestTriggerMessagePrompts(t *testing.T) {
	tests := []struct {
		in   TriggerInput
		want string
	}{
		{TriggerInput{Type: TriggerHalfDone, CompletedTasks: 3, TotalTasks: 6}, "выполнено 3/6"},
		{TriggerInput{Type: TriggerTaskOverdue, TaskTitle: "Buy", GoalTitle: "Run"}, `просрочена задача "Buy" в цели "Run"`},
		{TriggerInput{Type: TriggerFirstTaskDone, GoalTitle: "Run"}, `выполнена первая задача в цели "Run"`},
		{TriggerInput{Type: TriggerGoalOverdue, GoalTitle: "Run"}, `цель "Run" просрочена`},
		{TriggerInput{Type: TriggerGoalCompleted, GoalTitle: "Run"}, `достижением цели "Run"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.in.Type), func(t *testing.T) {
			svc, fc := newTestService("🎉 *Well done*")
			tt.in.UserName = "Ann"
			res, err := svc.TriggerMessage(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, "🎉 Well done", res.Text)
			prompt := fc.calls[0][1].Content
			assert.True(t, strings.HasPrefix(prompt, "Сегодня: 2025-03-10T08:30:00.000Z\nИмя: Ann\n"))
			assert.Contains(t, prompt, tt.want)
		})
	}

	svc, fc := newTestService("hi")
	_, err := svc.TriggerMessage(context.Background(), TriggerInput{Type: "UNKNOWN"})
	require.NoError(t, err)
	assert.Equal(t, "Сегодня: 2025-03-10T08:30:00.000Z\nИмя: \n", fc.calls[0][1].Content)
}

func TestMotivationAndDescription(t *testing.T) {
	svc, fc := newTestService("## Keep going", "A clear goal.")

	res, err := svc.Motivation(context.Background(), MotivationInput{Completed: 2, Total: 5})
	require.NoError(t, err)
	assert.Equal(t, "Keep going", res.Text)
	assert.Contains(t, fc.calls[0][1].Content, "Выполнено: 2 из 5.")

	res, err = svc.GoalDescription(context.Background(), DescriptionInput{Title: "Run"})
	require.NoError(t, err)
	assert.Equal(t, "A clear goal.", res.Text)
	assert.Contains(t, fc.calls[1][1].Content, "Заголовок: Run\nКонтекст: —\n")
}

func TestWeeklyReportCondenses(t *testing.T) {
	var goals []domain.GoalProgress
	for i := 0; i < 50; i++ {
		g := domain.GoalProgress{Title: fmt.Sprintf("goal-%d", i), Completed: 1, Total: 40, TimeLeftDays: 3}
		for j := 0; j < 20; j++ {
			g.CompletedTasks = append(g.CompletedTasks, domain.CompletedTask{Description: fmt.Sprintf("done-%d-%d", i, j)})
			g.PendingTasks = append(g.PendingTasks, domain.PendingTask{Description: fmt.Sprintf("todo-%d-%d", i, j)})
		}
		goals = append(goals, g)
	}
	var completed []domain.CompletedGoal
	for i := 0; i < 50; i++ {
		completed = append(completed, domain.CompletedGoal{Title: fmt.Sprintf("finished-%d", i)})
	}

	digest := condenseWeekly(WeeklyReportInput{GoalsSummary: goals, CompletedGoals: completed})
	lines := strings.Split(digest, "\n")
	require.Len(t, lines, 11)
	for i, line := range lines[:10] {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("%d. goal-%d [1/40] осталось: 3 дн.", i+1, i)))
		assert.Equal(t, 4, strings.Count(line, "; done-"), line)
		assert.Equal(t, 4, strings.Count(line, "; todo-"), line)
	}
	assert.NotContains(t, digest, "goal-10 ")
	assert.NotContains(t, digest, "done-0-5 ")
	assert.Equal(t, 10, strings.Count(lines[10], "finished-"))

	svc, fc := newTestService("**Report**")
	res, err := svc.WeeklyReport(context.Background(), WeeklyReportInput{GoalsSummary: goals, CompletedGoals: completed})
	require.NoError(t, err)
	assert.Equal(t, "Report", res.Text)
	assert.Contains(t, fc.calls[0][1].Content, "Пользователь: Пользователь\n")
	assert.Contains(t, fc.calls[0][1].Content, digest)
}

func TestCondenseGoals(t *testing.T) {
	deadline := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got := condenseGoals([]ChatGoal{
		{
			Title:        "Run",
			Description:  "Train\n\nhard ",
			UrgencyLevel: "HIGH",
			Deadline:     &deadline,
			SubGoals:     []ChatSubGoal{{Description: "shoes", IsCompleted: true}, {Description: "plan"}},
		},
		{Title: "Read", IsCompleted: true},
	})
	assert.Equal(t,
		"1. Run [АКТИВНА] (1/2) | Приоритет: HIGH | Дедлайн: 01.06.2025 | Train hard | Подзадачи: [✓] shoes; [ ] plan\n"+
			"2. Read [ЗАВЕРШЕНА]  | Приоритет: LOW | Дедлайн: не указан |",
		got)
}

func TestServicePropagatesErrorsAndObserves(t *testing.T) {
	obs := &recordingObserver{}
	fc := &fakeCompleter{err: &UpstreamError{Provider: "DeepSeek", Status: 500, Body: "boom"}}
	svc := NewService(fc, WithObserver(obs))

	_, err := svc.Tasks(context.Background(), TasksInput{Title: "x"})
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))

	_, err = svc.ChatAboutGoals(context.Background(), ChatInput{Question: "q"})
	require.Error(t, err)

	require.Len(t, obs.events, 2)
	assert.Equal(t, "tasks", obs.events[0].Feature)
	assert.Equal(t, "fake", obs.events[0].Model)
	assert.False(t, obs.events[0].Success)
	assert.Equal(t, "upstream", obs.events[0].ErrorCode)
	assert.Equal(t, "chat", obs.events[1].Feature)
}

func TestNewSelectsProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderDeepSeek})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DEEPSEEK_API_KEY", cfgErr.Setting)

	_, err = New(context.Background(), Config{Provider: ProviderGemini})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "GEMINI_API_KEY", cfgErr.Setting)

	_, err = New(context.Background(), Config{Provider: "other", APIKey: "k"})
	require.ErrorAs(t, err, &cfgErr)

	svc, err := New(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestDisabledServiceFailsEveryCall(t *testing.T) {
	cfgErr := &ConfigurationError{Setting: "DEEPSEEK_API_KEY"}
	s := Disabled(cfgErr)

	_, err := s.GoalDescription(context.Background(), DescriptionInput{Title: "x"})
	var got *ConfigurationError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "DEEPSEEK_API_KEY", got.Setting)

	_, err = s.Templates(context.Background())
	assert.ErrorIs(t, err, cfgErr)
}
