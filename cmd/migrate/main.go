// Command migrate переносит JSON-базу (tasks.json, users.json) в SQLite.
// Повторный запуск пропускает уже перенесённые записи.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"todo-chat/internal/logger"
	"todo-chat/internal/storage"
)

type report struct {
	Users, UsersSkipped int
	Tasks, TasksSkipped int
}

func main() {
	dataDir := flag.String("data", "./data", "directory with tasks.json and users.json")
	dbPath := flag.String("db", "", "SQLite file (default <data>/todoapp.db)")
	flag.Parse()

	ctx := context.Background()
	if *dbPath == "" {
		*dbPath = filepath.Join(*dataDir, "todoapp.db")
	}

	logger.Info(ctx, "🔄 Перенос JSON-базы в SQLite", "data", *dataDir, "db", *dbPath)

	rep, err := run(ctx, *dataDir, *dbPath)
	if err != nil {
		logger.Error(ctx, err, "❌ Миграция не удалась")
		os.Exit(1)
	}

	logger.Info(ctx, "🎉 Миграция завершена успешно",
		"users", rep.Users, "users_skipped", rep.UsersSkipped,
		"tasks", rep.Tasks, "tasks_skipped", rep.TasksSkipped,
	)
}

func run(ctx context.Context, dataDir, dbPath string) (report, error) {
	src, err := storage.NewJSONStorage(filepath.Join(dataDir, "tasks.json"), filepath.Join(dataDir, "users.json"))
	if err != nil {
		return report{}, fmt.Errorf("open json db: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return report{}, fmt.Errorf("create db dir: %w", err)
	}
	dst, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return report{}, err
	}
	defer dst.Close()

	return migrate(ctx, src, dst)
}

// migrate копирует сначала пользователей, потом задачи: у задач внешний ключ на users.
func migrate(ctx context.Context, src *storage.JSONStorage, dst storage.Storage) (report, error) {
	var rep report
	tasks, users := src.Snapshot()

	for _, u := range users {
		err := dst.CreateUser(ctx, u)
		switch {
		case err == nil:
			rep.Users++
		case errors.Is(err, storage.ErrUserExists):
			rep.UsersSkipped++
		default:
			return rep, fmt.Errorf("user %s: %w", u.Username, err)
		}
	}

	for _, t := range tasks {
		if _, err := dst.GetTask(ctx, t.Username, t.ID); err == nil {
			rep.TasksSkipped++
			continue
		} else if !errors.Is(err, storage.ErrTaskNotFound) {
			return rep, fmt.Errorf("task %s: %w", t.ID, err)
		}
		if err := dst.CreateTask(ctx, t); err != nil {
			return rep, fmt.Errorf("task %s: %w", t.ID, err)
		}
		rep.Tasks++
	}
	return rep, nil
}
