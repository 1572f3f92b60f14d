package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"todo-chat/internal/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Storage: абстракция хранилища. Все операции с задачами изолированы по username.
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task models.Task) error
	GetTask(ctx context.Context, username, id string) (*models.Task, error)
	ListTasks(ctx context.Context, username string) ([]models.Task, error)
	SaveTask(ctx context.Context, task models.Task) error
	DeleteTask(ctx context.Context, username, id string) error

	// Users
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	Close() error
}

// MemoryStorage хранит всё в памяти в порядке добавления.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks []models.Task
	users []models.User
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) CreateTask(_ context.Context, task models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, cloneTask(task))
	return nil
}

func (m *MemoryStorage) GetTask(_ context.Context, username, id string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(username, id)
	if i < 0 {
		return nil, ErrTaskNotFound
	}
	t := cloneTask(m.tasks[i])
	return &t, nil
}

func (m *MemoryStorage) ListTasks(_ context.Context, username string) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.Username == username {
			tasks = append(tasks, cloneTask(t))
		}
	}
	return tasks, nil
}

func (m *MemoryStorage) SaveTask(_ context.Context, task models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(task.Username, task.ID)
	if i < 0 {
		return ErrTaskNotFound
	}
	m.tasks[i] = cloneTask(task)
	return nil
}

func (m *MemoryStorage) DeleteTask(_ context.Context, username, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(username, id)
	if i < 0 {
		return ErrTaskNotFound
	}
	m.tasks = slices.Delete(m.tasks, i, i+1)
	return nil
}

func (m *MemoryStorage) CreateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrUserExists
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *MemoryStorage) GetUser(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStorage) Close() error {
	return nil
}

// snapshot и replace используются JSONStorage для сохранения/загрузки файлов
func (m *MemoryStorage) snapshot() ([]models.Task, []models.User) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]models.Task, len(m.tasks))
	for i, t := range m.tasks {
		tasks[i] = cloneTask(t)
	}
	return tasks, slices.Clone(m.users)
}

func (m *MemoryStorage) replaceTasks(tasks []models.Task) {
	m.mu.Lock()
	m.tasks = tasks
	m.mu.Unlock()
}

func (m *MemoryStorage) replaceUsers(users []models.User) {
	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
}

func (m *MemoryStorage) indexOf(username, id string) int {
	for i, t := range m.tasks {
		if t.ID == id && t.Username == username {
			return i
		}
	}
	return -1
}

func cloneTask(t models.Task) models.Task {
	t.Tags = slices.Clone(t.Tags)
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		t.CompletedAt = &ts
	}
	return t
}
