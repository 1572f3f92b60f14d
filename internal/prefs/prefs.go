// Package prefs хранит клиентское состояние между запусками: токен,
// имя пользователя и тему.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type Prefs struct {
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	DarkMode bool   `yaml:"dark_mode"`
}

type Store interface {
	Load() (Prefs, error)
	Save(Prefs) error
}

// FileStore: YAML-файл в каталоге конфигурации пользователя.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath: $XDG_CONFIG_HOME/todo-chat/session.yaml, иначе ~/.config/todo-chat/session.yaml
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "todo-chat", "session.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "todo-chat", "session.yaml"), nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load возвращает пустые настройки, если файла ещё нет.
func (s *FileStore) Load() (Prefs, error) {
	var p Prefs
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("parse prefs %s: %w", s.path, err)
	}
	return p, nil
}

// Save пишет файл с правами 0600: в нём лежит токен.
func (s *FileStore) Save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	// WriteFile не меняет права уже существующего файла
	return os.Chmod(s.path, 0o600)
}

// MemoryStore: для тестов и telegram-бота, где сессия живёт в памяти.
type MemoryStore struct {
	mu    sync.Mutex
	prefs Prefs
	saves int
}

func NewMemoryStore(initial Prefs) *MemoryStore {
	return &MemoryStore{prefs: initial}
}

func (s *MemoryStore) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs, nil
}

func (s *MemoryStore) Save(p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
	s.saves++
	return nil
}

// Saves: сколько раз вызывался Save
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
