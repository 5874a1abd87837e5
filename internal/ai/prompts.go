package ai

import (
	"fmt"
	"strings"
	"time"
)

// Prompt builders are pure: they turn typed input into a system
// instruction and a user turn. Caller text is interpolated verbatim.

const (
	noValue        = "—"
	noTimeframe    = "не задан"
	noGoalDeadline = "не указан"
	defaultMax     = 6
	maxTaskItems   = 20
	chatHistoryCap = 10
	chatApology    = "Извините, не удалось получить ответ. Попробуйте переформулировать вопрос."
)

func isoUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func orDash(s string) string {
	if s == "" {
		return noValue
	}
	return s
}

func descriptionPrompt(in DescriptionInput) (string, string) {
	system := "Ты помощник по целям. Пиши кратко, структурировано и по делу."
	prompt := fmt.Sprintf("Сформируй качественное описание цели на основе заголовка и контекста, буквально 1 предложение краткое.\n"+
		"Заголовок: %s\nКонтекст: %s\n", in.Title, orDash(in.Context))
	return system, prompt
}

func tasksPrompt(in TasksInput, max int, now time.Time) (string, string) {
	timeframe := in.Deadline
	if timeframe == "" {
		timeframe = noTimeframe
	}
	system := "Ты планировщик. Верни строго JSON без markdown и текста вокруг."
	prompt := fmt.Sprintf("Сгенерируй до %d базовых задач для достижения цели.\n"+
		"Цель: %s\n"+
		"Контекст: %s\n"+
		"Срок выполнения всей цели: %s\n"+
		"Сегодняшняя дата (UTC): %s\n"+
		"Требование по срокам задач: каждой задаче присвой свой дедлайн в формате ISO-8601 (например, 2025-03-31T00:00:00.000Z), "+
		"распределив дедлайны равномерно от сегодняшнего дня по всему сроку. Дедлайны задач должны отличаться друг от друга и идти по времени вперёд.\n"+
		`Формат ответа: массив JSON вида [{"description":"текст задачи","deadline":"ISO-8601"}].`,
		max, in.Title, orDash(in.Context), timeframe, isoUTC(now))
	return system, prompt
}

func motivationPrompt(in MotivationInput) (string, string) {
	system := "Ты мотиватор. Пиши дружелюбно и кратко, 1-2 предложения."
	prompt := fmt.Sprintf("Сгенерируй персональное мотивационное сообщение.\n"+
		"Выполнено: %d из %d.\n"+
		`Пример стиля: "Отлично, ты завершил %d из %d задач, осталось немного — так держать!"`,
		in.Completed, in.Total, in.Completed, in.Total)
	return system, prompt
}

func weeklyReportPrompt(in WeeklyReportInput, now time.Time) (string, string) {
	system := strings.Join([]string{
		"Ты аналитик и мотивирующий коуч. Пиши в стиле данного примера:",
		"\"Привет 👋\nПодготовил для тебя статистику за эту неделю - ты просто машина продуктивности!\n\n" +
			"✅ Задачи: ...\n📈 Продуктивность: ...\n🏆 Завершено: ...\n🎯 Ключевые цели в работе: ...\n⚡️ ...\n\n" +
			"💪 Мотивация: ...\n\n🎯 ИИ-рекомендация: \\\"...\\\"\"",
		"Сохраняй структуру и тон: приветствие, блок с иконками-строками, мотивация, рекомендация. Больше смайликов, без markdown-разметки и списочных маркеров.",
	}, " ")

	name := in.UserName
	if name == "" {
		name = "Пользователь"
	}
	prompt := fmt.Sprintf("Пользователь: %s\nСегодня: %s\nДанные за неделю:\n%s\n"+
		"Сформируй отчёт в стиле примера выше: коротко, по делу, с множеством смайликов. Упоминай числа и сроки лаконично.",
		name, isoUTC(now), condenseWeekly(in))
	return system, prompt
}

func templatesPrompt() (string, string) {
	return "Ты библиотекарь целей. Верни только список шаблонных целей, по одной на строку.",
		"Сгенерируй 10 шаблонных целей для личной продуктивности и саморазвития."
}

func templateDescriptionPrompt(title string, in TemplateInput, now time.Time) (string, string) {
	system := "Ты помощник по целям. Сформируй краткое, мотивирующее и конкретное описание цели на основе шаблона или краткого описания, максимум 2 предложения."
	prompt := fmt.Sprintf("Шаблон цели: %s\nКраткое описание: %s\nКонтекст: %s\nСрок цели: %s\nСегодняшняя дата (UTC): %s\n",
		title, orDash(in.ShortDescription), orDash(in.Context), in.Deadline, isoUTC(now))
	return system, prompt
}

func chatSystemPrompt(focused bool) string {
	if focused {
		return strings.Join([]string{
			"Ты персональный коуч по целям. Пользователь сфокусирован на конкретной задаче или цели.",
			"Твоя задача - дать максимально конкретные и практичные советы именно по этой задаче.",
			"Учитывай всю историю диалога для понимания контекста, предпочтений и прогресса пользователя.",
			"Анализируй предыдущие советы и адаптируй новые рекомендации под стиль общения пользователя.",
			"Отвечай на русском языке, дружелюбно и мотивирующе.",
			"Давай конкретные шаги, советы и рекомендации с учетом истории взаимодействий.",
			"Если нужно, предлагай разбить задачу на подзадачи или скорректировать подход.",
			`ВАЖНО: Отвечай ТОЛЬКО в формате JSON: {"selectedGoalTitle": "название цели", "answer": "твой ответ"}.`,
			"Не добавляй никакого текста до или после JSON. Только чистый JSON.",
		}, " ")
	}
	return strings.Join([]string{
		"Ты персональный коуч по целям. У тебя есть полная история диалога с пользователем.",
		"Анализируй историю для понимания контекста, предпочтений, стиля общения и текущего состояния дел.",
		"Выбери ОДНУ наиболее релевантную цель из списка по смысловой близости к запросу и истории.",
		"Дай конкретный, персонализированный ответ с практическими шагами.",
		"Учитывай предыдущие советы, прогресс пользователя и адаптируй стиль под его предпочтения.",
		"Отвечай на русском языке, дружелюбно и мотивирующе.",
		`ВАЖНО: Отвечай ТОЛЬКО в формате JSON: {"selectedGoalTitle": "название цели", "answer": "твой ответ"}.`,
		"Не добавляй никакого текста до или после JSON. Только чистый JSON.",
	}, " ")
}

func chatUserPrompt(in ChatInput, history []Message) string {
	var b strings.Builder
	b.WriteString(analyzeHistory(history))
	b.WriteString("\n\nВопрос: ")
	b.WriteString(in.Question)
	if in.Focus != "" {
		fmt.Fprintf(&b, "\nФокус на задаче: \"%s\"", in.Focus)
	}
	b.WriteString("\nСписок целей:\n")
	b.WriteString(condenseGoals(in.Goals))
	return b.String()
}

// lastTurns returns at most n trailing messages.
func lastTurns(history []Message, n int) []Message {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func analyzeHistory(history []Message) string {
	if len(history) == 0 {
		return "История диалога отсутствует."
	}
	recent := lastTurns(history, 6)

	var questions, answers []string
	for _, h := range recent {
		switch h.Role {
		case RoleUser:
			questions = append(questions, h.Content)
		case RoleAssistant:
			answers = append(answers, h.Content)
		}
	}

	var b strings.Builder
	b.WriteString("Контекст из истории диалога:\n")
	if len(questions) > 0 {
		fmt.Fprintf(&b, "Последние вопросы пользователя: %s\n", strings.Join(tail(questions, 3), "; "))
	}
	if len(answers) > 0 {
		fmt.Fprintf(&b, "Последние советы ассистента: %s\n", strings.Join(tail(answers, 2), "; "))
	}
	fmt.Fprintf(&b, "Полная история (последние %d сообщений):\n", len(recent))
	for i, h := range recent {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, h.Role, h.Content)
	}
	return strings.TrimSpace(b.String())
}

func tail(items []string, n int) []string {
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

func triggerPrompt(in TriggerInput, now time.Time) (string, string) {
	system := "Ты коуч. Верни одно короткое мотивирующее сообщение с эмодзи. Без markdown и без списков."

	prompt := fmt.Sprintf("Сегодня: %s\nИмя: %s\n", isoUTC(now), in.UserName)
	switch in.Type {
	case TriggerHalfDone:
		prompt += fmt.Sprintf("Сгенерируй фразу по достижению половины задач: выполнено %d/%d. Тон: вдохновляющий.", in.CompletedTasks, in.TotalTasks)
	case TriggerTaskOverdue:
		prompt += fmt.Sprintf("Сгенерируй мягкое напоминание: просрочена задача \"%s\" в цели \"%s\". Предложи начать с малого.", in.TaskTitle, in.GoalTitle)
	case TriggerFirstTaskDone:
		prompt += fmt.Sprintf("Сгенерируй обнадёживающее сообщение: выполнена первая задача в цели \"%s\".", in.GoalTitle)
	case TriggerGoalOverdue:
		prompt += fmt.Sprintf("Сгенерируй поддерживающее сообщение: цель \"%s\" просрочена. Предложи скорректировать план.", in.GoalTitle)
	case TriggerGoalCompleted:
		prompt += fmt.Sprintf("Сгенерируй поздравление с достижением цели \"%s\". Предложи порадовать себя наградой.", in.GoalTitle)
	}
	return system, prompt
}
