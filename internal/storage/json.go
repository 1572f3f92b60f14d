package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"todo-chat/internal/logger"
	"todo-chat/internal/models"
)

// JSONStorage: "база данных" в двух JSON-файлах: tasks.json и users.json.
// Данные держатся в памяти, каждое изменение целиком переписывает файл.
type JSONStorage struct {
	mem       *MemoryStorage
	tasksPath string
	usersPath string

	mu sync.Mutex
	// хэши последнего записанного/прочитанного содержимого, чтобы Watch
	// не перечитывал наши собственные записи
	lastSum map[string][sha256.Size]byte
}

// на диске у задачи есть владелец, в API его нет
type taskRecord struct {
	models.Task
	Username string `json:"username"`
}

func NewJSONStorage(tasksPath, usersPath string) (*JSONStorage, error) {
	s := &JSONStorage{
		mem:       NewMemoryStorage(),
		tasksPath: tasksPath,
		usersPath: usersPath,
		lastSum:   make(map[string][sha256.Size]byte),
	}
	for _, p := range []string{tasksPath, usersPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	// отсутствующий файл при старте: пустая база
	if err := s.loadTasks(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := s.loadUsers(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

func (s *JSONStorage) CreateTask(ctx context.Context, task models.Task) error {
	return s.updateTasks(func() error { return s.mem.CreateTask(ctx, task) })
}

func (s *JSONStorage) GetTask(ctx context.Context, username, id string) (*models.Task, error) {
	return s.mem.GetTask(ctx, username, id)
}

func (s *JSONStorage) ListTasks(ctx context.Context, username string) ([]models.Task, error) {
	return s.mem.ListTasks(ctx, username)
}

func (s *JSONStorage) SaveTask(ctx context.Context, task models.Task) error {
	return s.updateTasks(func() error { return s.mem.SaveTask(ctx, task) })
}

func (s *JSONStorage) DeleteTask(ctx context.Context, username, id string) error {
	return s.updateTasks(func() error { return s.mem.DeleteTask(ctx, username, id) })
}

func (s *JSONStorage) CreateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, before := s.mem.snapshot()
	if err := s.mem.CreateUser(ctx, user); err != nil {
		return err
	}
	if err := s.saveUsers(); err != nil {
		s.mem.replaceUsers(before)
		return err
	}
	return nil
}

// updateTasks применяет изменение в памяти и переписывает файл; если запись
// не удалась, память откатывается к прежнему состоянию.
func (s *JSONStorage) updateTasks(apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, _ := s.mem.snapshot()
	if err := apply(); err != nil {
		return err
	}
	if err := s.saveTasks(); err != nil {
		s.mem.replaceTasks(before)
		return err
	}
	return nil
}

func (s *JSONStorage) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.mem.GetUser(ctx, username)
}

func (s *JSONStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.mem.GetUserByEmail(ctx, email)
}

func (s *JSONStorage) Close() error {
	return nil
}

// Snapshot отдаёт все задачи и пользователей (нужно для миграции в SQLite).
func (s *JSONStorage) Snapshot() ([]models.Task, []models.User) {
	return s.mem.snapshot()
}

// Watch перечитывает файлы, если их изменили снаружи. Блокирует до отмены ctx.
func (s *JSONStorage) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]bool{filepath.Dir(s.tasksPath): true, filepath.Dir(s.usersPath): true}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Info(ctx, "Слежение за JSON-хранилищем запущено", "tasks", s.tasksPath, "users", s.usersPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.reload(ctx, filepath.Clean(ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, err, "Ошибка fsnotify")
		}
	}
}

func (s *JSONStorage) reload(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch path {
	case filepath.Clean(s.tasksPath):
		err = s.loadTasks()
	case filepath.Clean(s.usersPath):
		err = s.loadUsers()
	default:
		return
	}
	// rename-сохранение редактора или mv: файл на миг пропадает, память не трогаем
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "Файл временно отсутствует, перечитывание пропущено", "path", path)
		return
	}
	if err != nil {
		logger.Error(ctx, err, "Не удалось перечитать файл", "path", path)
	}
}

func (s *JSONStorage) loadTasks() error {
	data, changed, err := s.readIfChanged(s.tasksPath)
	if err != nil || !changed {
		return err
	}
	var records []taskRecord
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse %s: %w", s.tasksPath, err)
		}
	}
	tasks := make([]models.Task, 0, len(records))
	for _, r := range records {
		t := r.Task
		t.Username = r.Username
		tasks = append(tasks, t)
	}
	s.mem.replaceTasks(tasks)
	logger.Debug(context.Background(), "Задачи загружены", "count", len(tasks))
	return nil
}

func (s *JSONStorage) loadUsers() error {
	data, changed, err := s.readIfChanged(s.usersPath)
	if err != nil || !changed {
		return err
	}
	byName := map[string]models.User{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &byName); err != nil {
			return fmt.Errorf("parse %s: %w", s.usersPath, err)
		}
	}
	users := make([]models.User, 0, len(byName))
	for name, u := range byName {
		if u.Username == "" {
			u.Username = name
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	s.mem.replaceUsers(users)
	return nil
}

// readIfChanged читает файл; changed=false, если содержимое совпадает с
// последним записанным или прочитанным. Ошибка отсутствующего файла
// оборачивает os.ErrNotExist.
func (s *JSONStorage) readIfChanged(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	if prev, ok := s.lastSum[path]; ok && prev == sum {
		return nil, false, nil
	}
	s.lastSum[path] = sum
	return data, true, nil
}

func (s *JSONStorage) saveTasks() error {
	tasks, _ := s.mem.snapshot()
	records := make([]taskRecord, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, taskRecord{Task: t, Username: t.Username})
	}
	return s.writeJSON(s.tasksPath, records)
}

func (s *JSONStorage) saveUsers() error {
	_, users := s.mem.snapshot()
	byName := make(map[string]models.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return s.writeJSON(s.usersPath, byName)
}

// writeJSON пишет во временный файл и переименовывает, чтобы не оставить
// полузаписанный JSON.
func (s *JSONStorage) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}

	s.lastSum[path] = sha256.Sum256(data)
	return nil
}
