// Package agent превращает реплики пользователя в операции над задачами.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"todo-chat/internal/llm"
	"todo-chat/internal/logger"
	"todo-chat/internal/models"
	"todo-chat/internal/nlp"
	"todo-chat/internal/storage"
)

type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentCasual        Intent = "casual"
	IntentTaskCreation  Intent = "task_creation"
	IntentTaskOperation Intent = "task_operation"
)

// listLimit: сколько задач показывать в ответе
const listLimit = 10

// longMessageWords: с этой длины заголовок извлекает LLM
const longMessageWords = 10

var chatIntents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todoapp_chat_intents_total",
		Help: "Chat messages by detected intent",
	},
	[]string{"intent"},
)

// TaskService: операции над задачами, нужные агенту
type TaskService interface {
	AddTask(ctx context.Context, username string, req models.CreateTaskRequest) (*models.Task, error)
	ListTasks(ctx context.Context, username string, filter models.TaskFilter) ([]models.Task, error)
	FindByTitle(ctx context.Context, username, title string) (*models.Task, error)
	UpdateTask(ctx context.Context, username, id string, upd models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, username, id string) error
}

type Agent struct {
	tasks    TaskService
	llm      llm.Completer
	now      func() time.Time
	sessions sessions
}

// New создаёт агента. completer может быть nil: тогда работают только правила.
func New(tasks TaskService, completer llm.Completer) *Agent {
	return &Agent{tasks: tasks, llm: completer, now: time.Now}
}

// Chat обрабатывает одну реплику пользователя и возвращает ответ.
// Реплики одного пользователя обрабатываются по очереди.
func (a *Agent) Chat(ctx context.Context, username, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message cannot be empty")
	}

	s := a.sessions.get(username)
	s.mu.Lock()
	defer s.mu.Unlock()

	// при ошибке реплика без ответа не остаётся в истории
	prev := s.history
	s.record(models.RoleUser, message)
	reply, err := a.respond(ctx, s, username, message)
	if err != nil {
		s.history = prev
		return "", err
	}
	s.record(models.RoleAssistant, reply)
	return reply, nil
}

// History: копия истории диалога пользователя
func (a *Agent) History(username string) []models.ChatMessage {
	s := a.sessions.get(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Clear сбрасывает историю и незавершённое создание задачи
func (a *Agent) Clear(username string) {
	s := a.sessions.get(username)
	s.mu.Lock()
	s.history = nil
	s.pending = nil
	s.mu.Unlock()
}

func (a *Agent) respond(ctx context.Context, s *session, username, message string) (string, error) {
	if s.pending != nil {
		return a.followUp(ctx, s, username, message)
	}

	intent := a.classify(ctx, message)
	chatIntents.WithLabelValues(string(intent)).Inc()
	logger.Debug(ctx, "Намерение определено", "user", username, "intent", intent)

	if intent == IntentTaskCreation {
		return a.createFromMessage(ctx, s, username, message)
	}
	if a.llm == nil {
		return a.byRules(ctx, username, message)
	}
	return a.converse(ctx, s, username, message)
}

// classify спрашивает LLM; при любой ошибке: эвристика.
func (a *Agent) classify(ctx context.Context, message string) Intent {
	if a.llm != nil {
		out, err := a.llm.Complete(ctx, llm.CompletionOptions{
			Prompt:      intentPrompt(message),
			MaxTokens:   50,
			Temperature: 0.1,
		})
		if err == nil {
			if intent, ok := parseIntent(out); ok {
				return intent
			}
			logger.Warn(ctx, "Не удалось разобрать ответ классификатора", "response", out)
		} else {
			logger.Warn(ctx, "Классификация через LLM не удалась", "error", err.Error())
		}
	}
	return fallbackIntent(message)
}

func parseIntent(out string) (Intent, bool) {
	raw := jsonObjectRe.FindString(out)
	if raw == "" {
		return "", false
	}
	var res struct {
		Intent     string `json:"intent"`
		Confidence string `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", false
	}
	switch intent := Intent(strings.ToLower(strings.TrimSpace(res.Intent))); intent {
	case IntentGreeting, IntentCasual, IntentTaskCreation, IntentTaskOperation:
		return intent, true
	}
	return "", false
}

func fallbackIntent(message string) Intent {
	if _, ok := matchRule(message); ok {
		return IntentTaskOperation
	}
	if nlp.HasTaskIntent(message) {
		return IntentTaskCreation
	}
	return IntentCasual
}

func (a *Agent) createFromMessage(ctx context.Context, s *session, username, message string) (string, error) {
	today := a.now()
	due, _ := nlp.ParseDate(message, today)
	priority, _ := nlp.ExtractPriority(message)
	title := a.extractTitle(ctx, message)
	if title == "" {
		return "❌ Could not extract task title", nil
	}

	p := &pendingTask{Title: title, DueDate: due, Priority: priority}
	if p.complete() {
		return a.create(ctx, username, p)
	}

	s.pending = p
	switch {
	case due == "" && priority == "":
		return fmt.Sprintf("📝 To create '%s':\n\n📅 When? (today, tomorrow, next week)\n🎯 Priority? (low, medium, high, urgent)", title), nil
	case due == "":
		return fmt.Sprintf("📅 When should '%s' be done?", title), nil
	default:
		return fmt.Sprintf("🎯 What priority for '%s'?\n\n[Low] [Medium] [High] [Urgent]", title), nil
	}
}

// extractTitle: длинные фразы отдаются LLM, короткие чистятся регулярками
func (a *Agent) extractTitle(ctx context.Context, message string) string {
	if a.llm != nil && nlp.WordCount(message) > longMessageWords {
		out, err := a.llm.Complete(ctx, llm.CompletionOptions{
			Prompt:      titlePrompt(message),
			MaxTokens:   30,
			Temperature: 0.1,
		})
		out = strings.Trim(strings.TrimSpace(out), `"'.`)
		if err == nil && out != "" && len(out) < 60 {
			return out
		}
		logger.Warn(ctx, "LLM не извлёк заголовок, используем регулярки")
	}
	return nlp.ExtractTitle(message)
}

func (a *Agent) followUp(ctx context.Context, s *session, username, message string) (string, error) {
	p := s.pending
	if isCancel(message) {
		s.pending = nil
		return fmt.Sprintf("👌 Cancelled '%s'", p.Title), nil
	}

	if p.DueDate == "" {
		if due, ok := nlp.ParseDate(message, a.now()); ok {
			p.DueDate = due
		}
	}
	if p.Priority == "" {
		if priority, ok := nlp.ExtractPriority(message); ok {
			p.Priority = priority
		}
	}

	switch {
	case p.complete():
		s.pending = nil
		return a.create(ctx, username, p)
	case p.DueDate == "":
		return "📅 When?", nil
	default:
		return "🎯 Priority?", nil
	}
}

func isCancel(message string) bool {
	switch strings.ToLower(strings.Trim(message, " .!")) {
	case "cancel", "stop", "nevermind", "never mind", "forget it":
		return true
	}
	return false
}

func (a *Agent) create(ctx context.Context, username string, p *pendingTask) (string, error) {
	existing, err := a.tasks.FindByTitle(ctx, username, p.Title)
	switch {
	case err == nil && !existing.IsCompleted():
		return fmt.Sprintf("❌ Task '%s' exists", p.Title), nil
	case err != nil && !errors.Is(err, storage.ErrTaskNotFound):
		return "", err
	}

	task, err := a.tasks.AddTask(ctx, username, models.CreateTaskRequest{
		Title:    p.Title,
		Priority: p.Priority,
		DueDate:  p.DueDate,
	})
	if err != nil {
		return fmt.Sprintf("❌ %v", err), nil
	}
	return fmt.Sprintf("✅ Created: '%s' (Priority: %s, Due: %s)", task.Title, task.Priority, task.DueDate), nil
}

// converse: свободный диалог с LLM; ответ может оказаться вызовом функции
func (a *Agent) converse(ctx context.Context, s *session, username, message string) (string, error) {
	out, err := a.llm.Complete(ctx, llm.CompletionOptions{
		SystemPrompt: systemPrompt(a.now()),
		History:      s.recent(),
		MaxTokens:    400,
		Temperature:  0.3,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Error(ctx, err, "LLM недоступен, отвечаем по правилам", "user", username)
		return a.byRules(ctx, username, message)
	}

	call, ok, err := ParseFunctionCall(out)
	if !ok {
		return out, nil
	}
	if err != nil {
		logger.Warn(ctx, "Некорректный вызов функции от LLM", "error", err.Error(), "response", out)
		return fmt.Sprintf("❌ %v", err), nil
	}
	return a.execute(ctx, username, call)
}

func (a *Agent) execute(ctx context.Context, username string, call *FunctionCall) (string, error) {
	p := call.Parameters
	switch call.Function {
	case FuncListTasks:
		return a.list(ctx, username, models.TaskFilter{
			Status:   models.Status(p.Status),
			Priority: models.Priority(p.Priority),
		})
	case FuncSearchTasks:
		return a.list(ctx, username, models.TaskFilter{Query: p.Query})
	case FuncCompleteTask:
		task, err := a.tasks.FindByTitle(ctx, username, p.Title)
		if err != nil {
			return notFound(p.Title, err)
		}
		done := models.StatusCompleted
		if _, err := a.tasks.UpdateTask(ctx, username, task.ID, models.TaskUpdate{Status: &done}); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Completed: '%s'", task.Title), nil
	case FuncDeleteTask:
		task, err := a.tasks.FindByTitle(ctx, username, p.Title)
		if err != nil {
			return notFound(p.Title, err)
		}
		if err := a.tasks.DeleteTask(ctx, username, task.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("🗑️ Deleted: '%s'", task.Title), nil
	}
	return "", fmt.Errorf("unknown function %q", call.Function)
}

func notFound(title string, err error) (string, error) {
	if !errors.Is(err, storage.ErrTaskNotFound) {
		return "", err
	}
	return fmt.Sprintf("❌ Task '%s' not found", title), nil
}

func (a *Agent) list(ctx context.Context, username string, filter models.TaskFilter) (string, error) {
	tasks, err := a.tasks.ListTasks(ctx, username, filter)
	if err != nil {
		return "", err
	}
	return FormatTaskList(tasks), nil
}

// FormatTaskList: нумерованный список первых listLimit задач
func FormatTaskList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "📭 No tasks found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %d task(s):\n", len(tasks))
	for i, t := range tasks {
		if i == listLimit {
			break
		}
		mark := "📝"
		if t.IsCompleted() {
			mark = "✅"
		}
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, mark, t.Title)
	}
	return b.String()
}
