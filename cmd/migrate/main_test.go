package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chat/internal/models"
	"todo-chat/internal/storage"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src, err := storage.NewJSONStorage(filepath.Join(dir, "tasks.json"), filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	now := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, src.CreateUser(ctx, models.User{Username: "alice", Email: "a@x.io", PasswordHash: "h", CreatedAt: now}))
	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, src.CreateTask(ctx, models.Task{
			ID: id, Username: "alice", Title: "Task " + id,
			Status: models.StatusTodo, Priority: models.PriorityHigh,
			CreatedAt: now, UpdatedAt: now,
		}))
	}

	dbPath := filepath.Join(dir, "out", "todoapp.db")
	rep, err := run(ctx, dir, dbPath)
	require.NoError(t, err)
	assert.Equal(t, report{Users: 1, Tasks: 2}, rep)

	rep, err = run(ctx, dir, dbPath)
	require.NoError(t, err)
	assert.Equal(t, report{UsersSkipped: 1, TasksSkipped: 2}, rep)

	db, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer db.Close()
	tasks, err := db.ListTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Task t1", tasks[0].Title)
}

func TestRunEmptyDataDir(t *testing.T) {
	dir := t.TempDir()
	rep, err := run(context.Background(), dir, filepath.Join(dir, "todoapp.db"))
	require.NoError(t, err)
	assert.Equal(t, report{}, rep)
}
