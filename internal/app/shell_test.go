package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chat/internal/client"
	"todo-chat/internal/models"
	"todo-chat/internal/prefs"
	"todo-chat/internal/views"
)

var fixedNow = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

// fakeAPI: бэкенд в памяти, считает обращения
type fakeAPI struct {
	mu    sync.Mutex
	tasks []models.Task
	calls map[string]int

	loginErr  error
	verifyErr error
	tasksErr  error
	chatErr   error
	chatReply string
	// chatGate блокирует Chat до закрытия или отмены контекста
	chatGate chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, chatReply: "✅ Created: 'Buy milk'"}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (*client.LoginResult, error) {
	f.hit("login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.LoginResult{Token: "tok-" + username, Username: username}, nil
}

func (f *fakeAPI) Signup(context.Context, string, string, string) error {
	f.hit("signup")
	return nil
}

func (f *fakeAPI) Verify(_ context.Context, _ string) (*client.VerifyResult, error) {
	f.hit("verify")
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &client.VerifyResult{Username: "alice", Valid: true}, nil
}

func (f *fakeAPI) Tasks(context.Context, string) ([]models.Task, error) {
	f.hit("tasks")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	return append([]models.Task(nil), f.tasks...), nil
}

func (f *fakeAPI) Chat(ctx context.Context, _ string, message string) (string, error) {
	f.hit("chat")
	if f.chatGate != nil {
		select {
		case <-f.chatGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.chatErr != nil {
		return "", f.chatErr
	}
	f.mu.Lock()
	f.tasks = append(f.tasks, models.Task{ID: fmt.Sprintf("t%d", len(f.tasks)+1), Title: message, Status: models.StatusTodo, Priority: models.PriorityMedium})
	f.mu.Unlock()
	return f.chatReply, nil
}

func (f *fakeAPI) UpdateStatus(_ context.Context, _, id string, status models.Status) error {
	f.hit("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			return nil
		}
	}
	return &client.APIError{StatusCode: http.StatusNotFound, Detail: "Task not found"}
}

func (f *fakeAPI) Delete(_ context.Context, _, id string) error {
	f.hit("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &client.APIError{StatusCode: http.StatusNotFound, Detail: "Task not found"}
}

func (f *fakeAPI) ClearChat(context.Context, string) error {
	f.hit("clear")
	return nil
}

func newShell(api API, store prefs.Store) *Shell {
	s := NewShell(api, store)
	s.now = func() time.Time { return fixedNow }
	return s
}

func loggedIn(t *testing.T, api *fakeAPI) (*Shell, *prefs.MemoryStore) {
	t.Helper()
	store := prefs.NewMemoryStore(prefs.Prefs{})
	s := newShell(api, store)
	require.NoError(t, s.Login(context.Background(), "alice", "secret123"))
	return s, store
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	api := newFakeAPI()
	s := newShell(api, prefs.NewMemoryStore(prefs.Prefs{}))

	err := s.Login(context.Background(), "al", "123")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	assert.ErrorIs(t, err, models.ErrUsernameTooShort)
	assert.ErrorIs(t, err, models.ErrPasswordTooShort)

	err = s.Signup(context.Background(), "alice", "not-an-email", "secret123")
	assert.ErrorIs(t, err, models.ErrInvalidEmail)

	assert.Zero(t, api.count("login"))
	assert.Zero(t, api.count("signup"))
}

func TestLoginPersistsAndFetches(t *testing.T) {
	api := newFakeAPI()
	api.tasks = []models.Task{{ID: "t1", Title: "Buy milk", Status: models.StatusTodo}}
	s, store := loggedIn(t, api)

	st := s.Snapshot()
	assert.True(t, st.LoggedIn())
	assert.Equal(t, "alice", st.Username)
	assert.Len(t, st.Tasks, 1)

	p, _ := store.Load()
	assert.Equal(t, "tok-alice", p.Token)
	assert.Equal(t, "alice", p.Username)
}

func TestLoginBackendRejection(t *testing.T) {
	api := newFakeAPI()
	s := newShell(api, prefs.NewMemoryStore(prefs.Prefs{}))

	api.loginErr = &client.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid username or password"}
	err := s.Login(context.Background(), "alice", "secret123")
	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Invalid username or password", aerr.Message)

	api.loginErr = errors.New("connection refused")
	err = s.Login(context.Background(), "alice", "secret123")
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, loginFailedMessage, aerr.Message)
	assert.False(t, s.Snapshot().LoggedIn())
}

func TestSignupLogsIn(t *testing.T) {
	api := newFakeAPI()
	s := newShell(api, prefs.NewMemoryStore(prefs.Prefs{}))

	require.NoError(t, s.Signup(context.Background(), "bob", "bob@example.com", "secret123"))
	assert.Equal(t, 1, api.count("signup"))
	assert.Equal(t, "bob", s.Snapshot().Username)
}

func TestRestore(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		api := newFakeAPI()
		s := newShell(api, prefs.NewMemoryStore(prefs.Prefs{Token: "tok", Username: "alice", DarkMode: true}))
		require.NoError(t, s.Restore(context.Background()))
		st := s.Snapshot()
		assert.True(t, st.LoggedIn())
		assert.True(t, st.DarkMode)
	})

	t.Run("rejected token clears session", func(t *testing.T) {
		api := newFakeAPI()
		api.verifyErr = &client.APIError{StatusCode: http.StatusUnauthorized}
		store := prefs.NewMemoryStore(prefs.Prefs{Token: "tok", Username: "alice", DarkMode: true})
		s := newShell(api, store)

		require.NoError(t, s.Restore(context.Background()))
		assert.False(t, s.Snapshot().LoggedIn())
		p, _ := store.Load()
		assert.Empty(t, p.Token)
		assert.True(t, p.DarkMode, "тема переживает выход")
	})

	t.Run("network error keeps token", func(t *testing.T) {
		api := newFakeAPI()
		api.verifyErr = errors.New("dial tcp: refused")
		s := newShell(api, prefs.NewMemoryStore(prefs.Prefs{Token: "tok", Username: "alice"}))
		assert.Error(t, s.Restore(context.Background()))
		assert.True(t, s.Snapshot().LoggedIn())
	})

	t.Run("no token", func(t *testing.T) {
		api := newFakeAPI()
		s := newShell(api, prefs.NewMemoryStore(prefs.Prefs{}))
		require.NoError(t, s.Restore(context.Background()))
		assert.Zero(t, api.count("verify"))
	})
}

func TestSendMessageRefetches(t *testing.T) {
	api := newFakeAPI()
	s, _ := loggedIn(t, api)
	before := api.count("tasks")

	reply, err := s.SendMessage(context.Background(), "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, api.chatReply, reply)
	assert.Equal(t, before+1, api.count("tasks"))

	st := s.Snapshot()
	require.Len(t, st.Transcript, 2)
	assert.Equal(t, models.RoleUser, st.Transcript[0].Role)
	assert.Equal(t, models.RoleAssistant, st.Transcript[1].Role)
	assert.Len(t, st.Tasks, 1)

	reply, err = s.SendMessage(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, reply)
	assert.Equal(t, 1, api.count("chat"))
}

func TestSendMessageFailure(t *testing.T) {
	api := newFakeAPI()
	s, _ := loggedIn(t, api)
	before := api.count("tasks")
	api.chatErr = errors.New("boom")

	reply, err := s.SendMessage(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, ChatErrorMessage, reply)
	assert.Equal(t, before, api.count("tasks"), "после ошибки список не перечитывается")

	st := s.Snapshot()
	require.Len(t, st.Transcript, 2)
	assert.Equal(t, ChatErrorMessage, st.Transcript[1].Content)
}

func TestActionsRequireLogin(t *testing.T) {
	s := newShell(newFakeAPI(), prefs.NewMemoryStore(prefs.Prefs{}))
	ctx := context.Background()

	assert.ErrorIs(t, s.Refresh(ctx), ErrNotLoggedIn)
	assert.ErrorIs(t, s.Complete(ctx, "t1"), ErrNotLoggedIn)
	assert.ErrorIs(t, s.Delete(ctx, "t1"), ErrNotLoggedIn)
	_, err := s.SendMessage(ctx, "hi")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestCompleteAndDelete(t *testing.T) {
	api := newFakeAPI()
	api.tasks = []models.Task{
		{ID: "t1", Title: "A", Status: models.StatusTodo, Priority: models.PriorityUrgent},
		{ID: "t2", Title: "B", Status: models.StatusTodo, Priority: models.PriorityHigh},
	}
	s, _ := loggedIn(t, api)
	ctx := context.Background()

	require.NoError(t, s.Complete(ctx, "t1"))
	assert.Equal(t, 1, s.Dashboard().Completed)

	require.NoError(t, s.Delete(ctx, "t2"))
	assert.Len(t, s.Snapshot().Tasks, 1)

	// ошибка не откатывает и не трогает список
	tasksBefore := api.count("tasks")
	err := s.Delete(ctx, "missing")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, tasksBefore, api.count("tasks"))
}

func TestDoubleActionIssuesTwoCalls(t *testing.T) {
	api := newFakeAPI()
	api.tasks = []models.Task{{ID: "t1", Status: models.StatusTodo}}
	s, _ := loggedIn(t, api)

	require.NoError(t, s.Complete(context.Background(), "t1"))
	require.NoError(t, s.Complete(context.Background(), "t1"))
	assert.Equal(t, 2, api.count("update"))
}

func TestTabsAndPaging(t *testing.T) {
	api := newFakeAPI()
	for i := range 17 {
		api.tasks = append(api.tasks, models.Task{ID: fmt.Sprintf("t%d", i), Status: models.StatusTodo, Priority: models.PriorityLow})
	}
	api.tasks[0].Priority = models.PriorityUrgent
	s, _ := loggedIn(t, api)

	page := s.CurrentPage()
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, views.PageSize)

	s.GotoPage(99)
	page = s.CurrentPage()
	assert.Equal(t, 3, page.Number)
	assert.Len(t, page.Items, 1)

	s.NextPage()
	assert.Equal(t, 3, s.Snapshot().Page, "дальше последней страницы не уходим")

	s.PrevPage()
	assert.Equal(t, 2, s.Snapshot().Page)

	s.SetTab(views.TabUrgent)
	assert.Equal(t, 1, s.Snapshot().Page, "смена вкладки сбрасывает страницу")
	page = s.CurrentPage()
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "t0", page.Items[0].ID)
}

func TestLogoutDiscardsInFlightChat(t *testing.T) {
	api := newFakeAPI()
	api.chatGate = make(chan struct{})
	store := prefs.NewMemoryStore(prefs.Prefs{})
	s := newShell(api, store)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, "alice", "secret123"))
	require.True(t, s.ToggleDarkMode(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := s.SendMessage(ctx, "Buy milk")
		done <- err
	}()

	require.Eventually(t, func() bool { return api.count("chat") == 1 }, time.Second, 5*time.Millisecond)
	s.Logout(ctx)

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	st := s.Snapshot()
	assert.False(t, st.LoggedIn())
	assert.Empty(t, st.Transcript, "ответ старой сессии не попал в переписку")
	assert.Empty(t, st.Tasks)
	assert.True(t, st.DarkMode)

	p, _ := store.Load()
	assert.Equal(t, prefs.Prefs{DarkMode: true}, p)
}

func TestRefreshUnauthorizedLogsOut(t *testing.T) {
	api := newFakeAPI()
	s, store := loggedIn(t, api)

	api.tasksErr = &client.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid or expired token"}
	assert.Error(t, s.Refresh(context.Background()))
	assert.False(t, s.Snapshot().LoggedIn())
	p, _ := store.Load()
	assert.Empty(t, p.Token)
}

func TestToggleDarkModePersists(t *testing.T) {
	store := prefs.NewMemoryStore(prefs.Prefs{})
	s := newShell(newFakeAPI(), store)

	assert.True(t, s.ToggleDarkMode(context.Background()))
	p, _ := store.Load()
	assert.True(t, p.DarkMode)

	assert.False(t, s.ToggleDarkMode(context.Background()))
	p, _ = store.Load()
	assert.False(t, p.DarkMode)
}

func TestClearChat(t *testing.T) {
	api := newFakeAPI()
	s, _ := loggedIn(t, api)

	_, err := s.SendMessage(context.Background(), "Buy milk")
	require.NoError(t, err)
	require.NotEmpty(t, s.Snapshot().Transcript)

	require.NoError(t, s.ClearChat(context.Background()))
	assert.Empty(t, s.Snapshot().Transcript)
	assert.Equal(t, 1, api.count("clear"))
}
