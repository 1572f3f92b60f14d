package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chat/internal/agent"
	"todo-chat/internal/auth"
	"todo-chat/internal/manager"
	"todo-chat/internal/models"
	"todo-chat/internal/server"
	"todo-chat/internal/storage"
)

func newBackend(t *testing.T) *Client {
	t.Helper()
	store := storage.NewMemoryStorage()
	tm := manager.NewTaskManager(store)
	srv := httptest.NewServer(server.NewRouter(server.Options{
		Tasks:       tm,
		Users:       manager.NewUserManager(store, auth.NewTokenIssuer("k", time.Hour)),
		Agent:       agent.New(tm, nil),
		CORSOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClientAgainstServer(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	require.NoError(t, c.Signup(ctx, "alice", "alice@example.com", "secret123"))

	err := c.Signup(ctx, "alice", "alice@example.com", "secret123")
	detail, ok := Detail(err)
	assert.True(t, ok)
	assert.Equal(t, "Username already exists", detail)

	login, err := c.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	token := login.Token

	v, err := c.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, err = c.Verify(ctx, "bad")
	assert.True(t, IsUnauthorized(err))

	tasks, err := c.Tasks(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	reply, err := c.Chat(ctx, token, "Buy milk tomorrow urgent")
	require.NoError(t, err)
	assert.Contains(t, reply, "Created")

	tasks, err = c.Tasks(ctx, token)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, c.UpdateStatus(ctx, token, tasks[0].ID, models.StatusCompleted))
	tasks, err = c.Tasks(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)

	history, err := c.History(ctx, token)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	require.NoError(t, c.ClearChat(ctx, token))

	require.NoError(t, c.Delete(ctx, token, tasks[0].ID))
	err = c.Delete(ctx, token, tasks[0].ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Tasks(context.Background(), "t")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Detail)
	_, ok := Detail(err)
	assert.False(t, ok)
}

func TestClientHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"tasks": []any{}})
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).Tasks(ctx, "t")
	assert.ErrorIs(t, err, context.Canceled)
}
