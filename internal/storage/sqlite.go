package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"todo-chat/internal/logger"
	"todo-chat/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

const taskColumns = `id, username, title, description, status, priority, due_date, category, tags,
	created_at, updated_at, completed_at`

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// :memory: у каждого соединения своя, держим одно
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(context.Background(), "SQLite база данных инициализирована", "path", dbPath)
	return &SQLiteStorage{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT NOT NULL,
			username TEXT NOT NULL REFERENCES users(username),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'todo',
			priority TEXT NOT NULL DEFAULT 'medium',
			due_date TEXT,
			category TEXT,
			tags TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			completed_at DATETIME,
			PRIMARY KEY (username, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks (username, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Закрытие соединения
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) CreateTask(ctx context.Context, t models.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Username, t.Title, t.Description, string(t.Status), string(t.Priority),
		nullString(t.DueDate), nullString(t.Category), joinTags(t.Tags),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(), nullTime(t.CompletedAt),
	)
	return err
}

func (s *SQLiteStorage) GetTask(ctx context.Context, username, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE username = ? AND id = ?`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, username, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *SQLiteStorage) ListTasks(ctx context.Context, username string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE username = ? ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (s *SQLiteStorage) SaveTask(ctx context.Context, t models.Task) error {
	query := `
	UPDATE tasks
	SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, category = ?, tags = ?,
		updated_at = ?, completed_at = ?
	WHERE username = ? AND id = ?`

	result, err := s.db.ExecContext(ctx, query,
		t.Title, t.Description, string(t.Status), string(t.Priority),
		nullString(t.DueDate), nullString(t.Category), joinTags(t.Tags),
		t.UpdatedAt.UTC(), nullTime(t.CompletedAt),
		t.Username, t.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result, ErrTaskNotFound)
}

func (s *SQLiteStorage) DeleteTask(ctx context.Context, username, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE username = ? AND id = ?", username, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, ErrTaskNotFound)
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, u models.User) error {
	query := `INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, u.Username, u.Email, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrUserExists
	}
	return err
}

func (s *SQLiteStorage) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLiteStorage) getUser(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT username, email, password_hash, created_at FROM users WHERE ` + column + ` = ?`

	var u models.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(&u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task                    models.Task
		status, priority        string
		dueDate, category, tags sql.NullString
		completedAt             sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.Username, &task.Title, &task.Description, &status, &priority,
		&dueDate, &category, &tags, &task.CreatedAt, &task.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = models.Status(status)
	task.Priority = models.Priority(priority)
	task.DueDate = dueDate.String
	task.Category = category.String
	if tags.Valid && tags.String != "" {
		task.Tags = strings.Split(tags.String, ",")
	}
	if completedAt.Valid {
		ts := completedAt.Time
		task.CompletedAt = &ts
	}
	return &task, nil
}

// Вспомогательная функция для сканирования задач
func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func joinTags(tags []string) sql.NullString {
	return nullString(strings.Join(tags, ","))
}
