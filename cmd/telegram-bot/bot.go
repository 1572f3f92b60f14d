package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"todo-chat/internal/app"
	"todo-chat/internal/logger"
	"todo-chat/internal/models"
	"todo-chat/internal/prefs"
	"todo-chat/internal/views"
)

// Handler держит по оболочке на чат: у каждого чата своя сессия.
type Handler struct {
	api app.API

	mu     sync.Mutex
	shells map[int64]*app.Shell
	// id задач последней показанной страницы: /done <n> считает по ней
	shown map[int64][]string
}

func NewHandler(api app.API) *Handler {
	return &Handler{
		api:    api,
		shells: make(map[int64]*app.Shell),
		shown:  make(map[int64][]string),
	}
}

func (h *Handler) shell(chatID int64) *app.Shell {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.shells[chatID]
	if !ok {
		s = app.NewShell(h.api, prefs.NewMemoryStore(prefs.Prefs{}))
		h.shells[chatID] = s
	}
	return s
}

// Command: разобранная команда Telegram, Name без "/"
type Command struct {
	Name string
	Args string
}

// HandleCommand возвращает текст ответа на команду.
func (h *Handler) HandleCommand(ctx context.Context, chatID int64, cmd Command) string {
	s := h.shell(chatID)
	args := strings.Fields(cmd.Args)

	switch cmd.Name {
	case "start":
		return welcomeText
	case "help":
		return helpText
	case "login":
		if len(args) != 2 {
			return "Usage: /login <username> <password>"
		}
		if err := s.Login(ctx, args[0], args[1]); err != nil {
			return "❌ " + err.Error()
		}
		h.forgetPage(chatID)
		st := s.Snapshot()
		return fmt.Sprintf("👋 Logged in as %s. You have %d task(s).", st.Username, len(st.Tasks))
	case "signup":
		if len(args) != 3 {
			return "Usage: /signup <username> <email> <password>"
		}
		if err := s.Signup(ctx, args[0], args[1], args[2]); err != nil {
			return "❌ " + err.Error()
		}
		h.forgetPage(chatID)
		return fmt.Sprintf("🎉 Account created, logged in as %s.", s.Snapshot().Username)
	case "logout":
		s.Logout(ctx)
		h.forgetPage(chatID)
		return "👋 Logged out."
	}

	if !s.Snapshot().LoggedIn() {
		return "🔒 Log in first: /login <username> <password>"
	}

	switch cmd.Name {
	case "list":
		return h.list(ctx, chatID, s, args)
	case "next":
		s.NextPage()
		return h.page(chatID, s)
	case "prev":
		s.PrevPage()
		return h.page(chatID, s)
	case "stats":
		if err := s.Refresh(ctx); err != nil {
			return "❌ " + err.Error()
		}
		return formatStats(s.Dashboard())
	case "done":
		return h.mutate(ctx, chatID, s, cmd.Args, "✅ Completed: '%s'", s.Complete)
	case "delete":
		return h.mutate(ctx, chatID, s, cmd.Args, "🗑️ Deleted: '%s'", s.Delete)
	case "clear":
		if err := s.ClearChat(ctx); err != nil {
			return "❌ " + err.Error()
		}
		return "🧹 Conversation cleared."
	default:
		return "Unknown command. Use /help for the list of commands."
	}
}

// HandleText: обычное сообщение уходит агенту.
func (h *Handler) HandleText(ctx context.Context, chatID int64, text string) string {
	s := h.shell(chatID)
	if !s.Snapshot().LoggedIn() {
		return "🔒 Log in first: /login <username> <password>"
	}
	reply, err := s.SendMessage(ctx, text)
	if errors.Is(err, app.ErrSessionEnded) {
		return ""
	}
	return reply
}

// list: /list [tab] [page]
func (h *Handler) list(ctx context.Context, chatID int64, s *app.Shell, args []string) string {
	tab := views.TabAll
	page := 1
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			page = n
			continue
		}
		t, err := views.ParseTab(a)
		if err != nil {
			return "❌ " + err.Error()
		}
		tab = t
	}

	if err := s.Refresh(ctx); err != nil {
		return "❌ " + err.Error()
	}
	s.SetTab(tab)
	s.GotoPage(page)
	return h.page(chatID, s)
}

// page показывает текущую страницу и запоминает её строки для /done и /delete
func (h *Handler) page(chatID int64, s *app.Shell) string {
	page := s.CurrentPage()
	ids := make([]string, len(page.Items))
	for i, t := range page.Items {
		ids[i] = t.ID
	}
	h.mu.Lock()
	h.shown[chatID] = ids
	h.mu.Unlock()
	return formatPage(s.Snapshot().Tab, page)
}

func (h *Handler) shownRow(chatID int64, n int) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := h.shown[chatID]
	if n < 1 || n > len(ids) {
		return "", false
	}
	return ids[n-1], true
}

func (h *Handler) forgetPage(chatID int64) {
	h.mu.Lock()
	delete(h.shown, chatID)
	h.mu.Unlock()
}

// mutate: номер из последней показанной страницы или префикс id
func (h *Handler) mutate(ctx context.Context, chatID int64, s *app.Shell, ref, okFormat string, action func(context.Context, string) error) string {
	task, err := h.resolve(ctx, chatID, s, strings.TrimSpace(ref))
	if err != nil {
		return "❌ " + err.Error()
	}
	if err := action(ctx, task.ID); err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf(okFormat, task.Title)
}

// resolve: номер строки считается по странице, которую чат видел последней,
// а не по пересчитанному списку
func (h *Handler) resolve(ctx context.Context, chatID int64, s *app.Shell, ref string) (models.Task, error) {
	if ref == "" {
		return models.Task{}, errors.New("specify a task number from /list")
	}
	n, numErr := strconv.Atoi(ref)
	var id string
	if numErr == nil {
		var ok bool
		if id, ok = h.shownRow(chatID, n); !ok {
			return models.Task{}, fmt.Errorf("no task #%d on the last shown page, use /list", n)
		}
	}

	if err := s.Refresh(ctx); err != nil {
		return models.Task{}, err
	}
	tasks := s.Snapshot().Tasks
	if numErr != nil {
		return app.FindTask(tasks, ref)
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task #%d is gone, use /list to see the current tasks", n)
}

var priorityEmoji = map[models.Priority]string{
	models.PriorityUrgent: "🔴",
	models.PriorityHigh:   "🟠",
	models.PriorityMedium: "🟡",
	models.PriorityLow:    "🔵",
}

func formatPage(tab views.Tab, page views.Page[models.Task]) string {
	if page.TotalItems == 0 {
		return fmt.Sprintf("📭 No tasks in '%s'", tab)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s · page %d/%d\n", tab, page.Number, page.TotalPages)
	for i, t := range page.Items {
		status := "🟢"
		if t.IsCompleted() {
			status = "✅"
		}
		emoji, ok := priorityEmoji[t.Priority]
		if !ok {
			emoji = "⚪"
		}
		fmt.Fprintf(&b, "\n%d. %s%s %s", i+1, status, emoji, t.Title)
		if t.DueDate != "" {
			fmt.Fprintf(&b, " (due %s)", t.DueDate)
		}
	}
	if page.Number < page.TotalPages {
		b.WriteString("\n\n/next for more")
	}
	return b.String()
}

func formatStats(s views.Stats) string {
	return fmt.Sprintf("📊 Total: %d · To do: %d · In progress: %d · Completed: %d (%d%%)\n"+
		"🔴 %d  🟠 %d  🟡 %d  🔵 %d\n"+
		"Completed today: %d",
		s.Total, s.Todo, s.InProgress, s.Completed, s.CompletionRate,
		s.Urgent, s.High, s.Medium, s.Low,
		s.CompletedToday)
}

// logCommand пишет команду в лог без аргументов: в /login там пароль
func logCommand(ctx context.Context, user string, cmd Command) {
	logger.Info(ctx, "Получена команда", "user", user, "command", cmd.Name)
}

const welcomeText = `🎯 Welcome to TaskMate!

Log in with /login <username> <password> (or /signup <username> <email> <password>),
then just tell me what to do: "buy milk tomorrow, high priority".

/help lists all commands.`

const helpText = `🤖 Commands

/login <username> <password> - log in
/signup <username> <email> <password> - create an account
/logout - log out
/list [tab] [page] - tasks (tabs: all, today, week, urgent, high, completed)
/next, /prev - page through the list
/stats - dashboard
/clear - forget the conversation
/done <number> - mark a task from the list completed
/delete <number> - delete a task from the list
/help - this help

Anything else is sent to the assistant.`
