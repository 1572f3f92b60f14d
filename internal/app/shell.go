// Package app is the client-side application shell shared by the CLI and the
// Telegram bot. It owns the session (token, username, theme), the last fetched
// task list, the chat transcript and the list view position, and sequences
// every user action with the full task re-fetch that follows it.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"todo-chat/internal/client"
	"todo-chat/internal/logger"
	"todo-chat/internal/models"
	"todo-chat/internal/prefs"
	"todo-chat/internal/views"
)

// API: те эндпоинты бэкенда, которыми пользуется оболочка.
type API interface {
	Login(ctx context.Context, username, password string) (*client.LoginResult, error)
	Signup(ctx context.Context, username, email, password string) error
	Verify(ctx context.Context, token string) (*client.VerifyResult, error)
	Tasks(ctx context.Context, token string) ([]models.Task, error)
	Chat(ctx context.Context, token, message string) (string, error)
	UpdateStatus(ctx context.Context, token, id string, status models.Status) error
	Delete(ctx context.Context, token, id string) error
	ClearChat(ctx context.Context, token string) error
}

// State: снимок состояния для отрисовки.
type State struct {
	Username   string
	Token      string
	DarkMode   bool
	Tasks      []models.Task
	Transcript []models.ChatMessage
	Tab        views.Tab
	Page       int
}

func (s State) LoggedIn() bool {
	return s.Token != ""
}

type Shell struct {
	api   API
	store prefs.Store
	now   func() time.Time

	mu    sync.Mutex
	state State
	pager views.Pager

	// gen растёт при каждом входе и выходе; ответы старого поколения отбрасываются
	gen           uint64
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
}

func NewShell(api API, store prefs.Store) *Shell {
	ctx, cancel := context.WithCancel(context.Background())
	return &Shell{
		api:           api,
		store:         store,
		now:           time.Now,
		state:         State{Tab: views.TabAll, Tasks: []models.Task{}},
		pager:         views.NewPager(views.PageSize),
		sessionCtx:    ctx,
		sessionCancel: cancel,
	}
}

// Snapshot возвращает копию состояния.
func (s *Shell) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Page = s.pager.Page
	st.Tasks = append([]models.Task(nil), s.state.Tasks...)
	st.Transcript = append([]models.ChatMessage(nil), s.state.Transcript...)
	return st
}

// Restore поднимает сохранённую сессию. Если бэкенд отверг токен, сессия
// очищается. Сетевая ошибка токен не трогает.
func (s *Shell) Restore(ctx context.Context) error {
	p, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.DarkMode = p.DarkMode
	s.mu.Unlock()

	if p.Token == "" {
		return nil
	}
	gen := s.startSession(p.Username, p.Token)

	callCtx, release := s.bind(ctx)
	defer release()

	res, err := s.api.Verify(callCtx, p.Token)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			logger.Warn(ctx, "Сохранённый токен отклонён, выходим", "username", p.Username, "status", apiErr.StatusCode)
			s.endSession(gen)
			s.persist(ctx)
			return nil
		}
		return fmt.Errorf("verify session: %w", err)
	}

	s.mu.Lock()
	if s.gen == gen && res.Username != "" {
		s.state.Username = res.Username
	}
	s.mu.Unlock()
	return nil
}

func (s *Shell) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if err := validate(models.ValidateUsername(username), models.ValidatePassword(password)); err != nil {
		return err
	}

	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		return authError(err, loginFailedMessage)
	}
	if res.Username != "" {
		username = res.Username
	}

	s.startSession(username, res.Token)
	s.persist(ctx)
	logger.Info(ctx, "Вход выполнен", "username", username)

	if err := s.Refresh(ctx); err != nil {
		logger.Error(ctx, err, "Не удалось загрузить задачи после входа")
	}
	return nil
}

// Signup регистрирует пользователя и сразу входит под ним.
func (s *Shell) Signup(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validate(
		models.ValidateUsername(username),
		models.ValidateEmail(email),
		models.ValidatePassword(password),
	); err != nil {
		return err
	}

	if err := s.api.Signup(ctx, username, email, password); err != nil {
		return authError(err, signupFailedMessage)
	}
	return s.Login(ctx, username, password)
}

// Logout прерывает все запросы текущей сессии. Тема сохраняется.
func (s *Shell) Logout(ctx context.Context) {
	s.mu.Lock()
	username := s.state.Username
	s.resetLocked()
	s.mu.Unlock()

	s.persist(ctx)
	logger.Info(ctx, "Выход", "username", username)
}

// Refresh перечитывает весь список задач.
func (s *Shell) Refresh(ctx context.Context) error {
	token, gen, err := s.session()
	if err != nil {
		return err
	}
	callCtx, release := s.bind(ctx)
	defer release()

	tasks, err := s.api.Tasks(callCtx, token)
	if err != nil {
		if client.IsUnauthorized(err) {
			logger.Warn(ctx, "Токен больше не действует, выходим")
			s.endSession(gen)
			s.persist(ctx)
		}
		return fmt.Errorf("fetch tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrSessionEnded
	}
	s.state.Tasks = tasks
	s.pager.Goto(s.pager.Page, len(s.filteredLocked()))
	return nil
}

// SendMessage отправляет реплику агенту. При ошибке в переписку добавляется
// ChatErrorMessage, задачи не перечитываются.
func (s *Shell) SendMessage(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	token, gen, err := s.session()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.state.Transcript = append(s.state.Transcript, models.ChatMessage{Role: models.RoleUser, Content: text})
	s.mu.Unlock()

	callCtx, release := s.bind(ctx)
	reply, err := s.api.Chat(callCtx, token, text)
	release()

	if err != nil {
		logger.Error(ctx, err, "Ошибка чата")
		s.appendReply(gen, ChatErrorMessage)
		return ChatErrorMessage, err
	}
	if !s.appendReply(gen, reply) {
		return "", ErrSessionEnded
	}

	if err := s.Refresh(ctx); err != nil {
		logger.Error(ctx, err, "Не удалось обновить задачи после чата")
	}
	return reply, nil
}

// ClearChat сбрасывает историю агента на сервере и локальную переписку.
func (s *Shell) ClearChat(ctx context.Context) error {
	token, gen, err := s.session()
	if err != nil {
		return err
	}
	callCtx, release := s.bind(ctx)
	err = s.api.ClearChat(callCtx, token)
	release()
	if err != nil {
		logger.Error(ctx, err, "Не удалось очистить историю чата")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrSessionEnded
	}
	s.state.Transcript = nil
	return nil
}

// Complete отмечает задачу выполненной и перечитывает список.
func (s *Shell) Complete(ctx context.Context, id string) error {
	return s.mutate(ctx, "complete", id, func(ctx context.Context, token string) error {
		return s.api.UpdateStatus(ctx, token, id, models.StatusCompleted)
	})
}

func (s *Shell) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete", id, func(ctx context.Context, token string) error {
		return s.api.Delete(ctx, token, id)
	})
}

// mutate: один запрос, затем полный re-fetch. Ошибка только логируется
// и возвращается вызывающему, состояние не откатывается.
func (s *Shell) mutate(ctx context.Context, action, id string, call func(context.Context, string) error) error {
	token, _, err := s.session()
	if err != nil {
		return err
	}

	callCtx, release := s.bind(ctx)
	err = call(callCtx, token)
	release()
	if err != nil {
		logger.Error(ctx, err, "Действие над задачей не выполнено", "action", action, "task_id", id)
		return err
	}
	return s.Refresh(ctx)
}

func (s *Shell) SetTab(tab views.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tab = tab
	s.pager.Reset()
}

func (s *Shell) NextPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Next(len(s.filteredLocked()))
}

func (s *Shell) PrevPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Prev(len(s.filteredLocked()))
}

func (s *Shell) GotoPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Goto(page, len(s.filteredLocked()))
}

// CurrentPage: видимая страница списка активной вкладки.
func (s *Shell) CurrentPage() views.Page[models.Task] {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.filteredLocked()
	page := views.Paginate(filtered, s.pager.Size, s.pager.Page)
	page.Items = append([]models.Task(nil), page.Items...)
	return page
}

func (s *Shell) Dashboard() views.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return views.Dashboard(s.state.Tasks, s.now())
}

// ToggleDarkMode переключает тему и сохраняет её.
func (s *Shell) ToggleDarkMode(ctx context.Context) bool {
	s.mu.Lock()
	s.state.DarkMode = !s.state.DarkMode
	dark := s.state.DarkMode
	s.mu.Unlock()

	s.persist(ctx)
	return dark
}

func (s *Shell) filteredLocked() []models.Task {
	return views.FilterTab(s.state.Tasks, s.state.Tab, s.now())
}

// startSession начинает новое поколение: запросы прошлой сессии отменяются.
func (s *Shell) startSession(username, token string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.state.Username = username
	s.state.Token = token
	return s.gen
}

// endSession выходит, только если сессия всё ещё того же поколения.
func (s *Shell) endSession(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.resetLocked()
	}
}

func (s *Shell) resetLocked() {
	s.sessionCancel()
	s.sessionCtx, s.sessionCancel = context.WithCancel(context.Background())
	s.gen++

	s.state.Username = ""
	s.state.Token = ""
	s.state.Tasks = []models.Task{}
	s.state.Transcript = nil
	s.state.Tab = views.TabAll
	s.pager.Reset()
}

func (s *Shell) session() (token string, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Token == "" {
		return "", 0, ErrNotLoggedIn
	}
	return s.state.Token, s.gen, nil
}

// bind привязывает запрос к текущей сессии: выход отменяет его.
func (s *Shell) bind(ctx context.Context) (context.Context, func()) {
	s.mu.Lock()
	sessionCtx := s.sessionCtx
	s.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessionCtx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

func (s *Shell) appendReply(gen uint64, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.state.Transcript = append(s.state.Transcript, models.ChatMessage{Role: models.RoleAssistant, Content: content})
	return true
}

func (s *Shell) persist(ctx context.Context) {
	s.mu.Lock()
	p := prefs.Prefs{Token: s.state.Token, Username: s.state.Username, DarkMode: s.state.DarkMode}
	s.mu.Unlock()

	if err := s.store.Save(p); err != nil {
		logger.Error(ctx, err, "Не удалось сохранить сессию")
	}
}

func authError(err error, fallback string) error {
	if detail, ok := client.Detail(err); ok {
		return &AuthError{Message: detail, Err: err}
	}
	return &AuthError{Message: fallback, Err: err}
}
