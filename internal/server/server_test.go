package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chat/internal/agent"
	"todo-chat/internal/auth"
	"todo-chat/internal/manager"
	"todo-chat/internal/models"
	"todo-chat/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := storage.NewMemoryStorage()
	tm := manager.NewTaskManager(store)
	srv := httptest.NewServer(NewRouter(Options{
		Tasks:       tm,
		Users:       manager.NewUserManager(store, auth.NewTokenIssuer("test-secret", time.Hour)),
		Agent:       agent.New(tm, nil),
		CORSOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil)
func do(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func signupAndLogin(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	status := do(t, srv, http.MethodPost, "/api/signup", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var login struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	status = do(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": username, "password": "secret123",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, username, login.Username)
	return login.Token
}

type detail struct {
	Detail string `json:"detail"`
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]any
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/", "", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice")

	var verify map[string]any
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/verify", token, nil, &verify))
	assert.Equal(t, "alice", verify["username"])
	assert.Equal(t, "alice@example.com", verify["email"])
	assert.Equal(t, true, verify["valid"])

	var d detail
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/api/verify", "", nil, &d))
	assert.Equal(t, "Not authenticated", d.Detail)

	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/api/verify", "bogus", nil, &d))
	assert.Equal(t, "Invalid or expired token", d.Detail)

	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodPost, "/api/login", "",
		map[string]string{"username": "alice", "password": "nope-nope"}, &d))
	assert.Equal(t, "Invalid username or password", d.Detail)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/signup", "",
		map[string]string{"username": "alice", "email": "other@example.com", "password": "secret123"}, &d))
	assert.Equal(t, "Username already exists", d.Detail)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/signup", "",
		map[string]string{"username": "al", "email": "x@example.com", "password": "secret123"}, &d))
	assert.Contains(t, d.Detail, "at least 3 characters")
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice")

	var chat chatResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/chat", token,
		chatRequest{Message: "Buy milk tomorrow urgent"}, &chat))
	assert.Contains(t, chat.Response, "✅ Created: 'Buy milk'")

	var created models.Task
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/tasks", token,
		models.CreateTaskRequest{Title: "Call mom", Priority: models.PriorityLow}, &created))
	assert.Equal(t, models.PriorityLow, created.Priority)

	var list taskListResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/tasks", token, nil, &list))
	require.Equal(t, 2, list.Count)
	milk := list.Tasks[0]
	assert.Equal(t, "Buy milk", milk.Title)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/tasks?priority=urgent", token, nil, &list))
	assert.Equal(t, 1, list.Count)

	var d detail
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/tasks?status=done", token, nil, &d))

	var updated struct {
		Success bool        `json:"success"`
		Task    models.Task `json:"task"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPatch, "/api/tasks/"+milk.ID, token,
		map[string]string{"status": "completed"}, &updated))
	assert.True(t, updated.Success)
	assert.Equal(t, models.StatusCompleted, updated.Task.Status)
	assert.NotNil(t, updated.Task.CompletedAt)

	var stats map[string]float64
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/tasks/stats", token, nil, &stats))
	assert.Equal(t, 2.0, stats["total"])
	assert.Equal(t, 50.0, stats["completion_rate"])

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPatch, "/api/tasks/"+milk.ID, token,
		map[string]string{"priority": "whenever"}, &d))

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/tasks/"+milk.ID, token, nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/tasks/"+milk.ID, token, nil, &d))
	assert.Equal(t, "Task not found", d.Detail)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/tasks/"+milk.ID, token, nil, &d))
}

func TestUserIsolation(t *testing.T) {
	srv := newTestServer(t)
	alice := signupAndLogin(t, srv, "alice")
	bob := signupAndLogin(t, srv, "bob")

	var created models.Task
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/tasks", alice,
		models.CreateTaskRequest{Title: "Secret plan"}, &created))

	var list taskListResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/tasks", bob, nil, &list))
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Tasks)

	var d detail
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/tasks/"+created.ID, bob, nil, &d))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPatch, "/api/tasks/"+created.ID, bob,
		map[string]string{"status": "completed"}, &d))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/tasks/"+created.ID, bob, nil, &d))
}

func TestChatHistoryAndClear(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice")

	var d detail
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/chat", token, chatRequest{Message: "  "}, &d))
	assert.Equal(t, "Message cannot be empty", d.Detail)

	var chat chatResponse
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/chat", token, chatRequest{Message: "hello"}, &chat))

	var history struct {
		History []models.ChatMessage `json:"history"`
		Count   int                  `json:"count"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/chat/history", token, nil, &history))
	assert.Equal(t, 2, history.Count)
	assert.Equal(t, "hello", history.History[0].Content)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/chat/clear", token, nil, nil))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/chat/history", token, nil, &history))
	assert.Equal(t, 0, history.Count)
}

func TestBadJSONAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Post(srv.URL+"/api/login", "application/json", strings.NewReader("{oops"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var d detail
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/nope", "", nil, &d))
	assert.Equal(t, "Not found", d.Detail)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/", "", nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `todoapp_http_requests_total{method="GET",route="/",status="200"}`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
