package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"todo-chat/internal/auth"
	"todo-chat/internal/logger"
	"todo-chat/internal/models"
	"todo-chat/internal/storage"
)

type UserManager struct {
	mu     sync.Mutex
	store  storage.Storage
	tokens *auth.TokenIssuer
}

func NewUserManager(store storage.Storage, tokens *auth.TokenIssuer) *UserManager {
	return &UserManager{store: store, tokens: tokens}
}

// Signup регистрирует пользователя. Имя и email должны быть уникальны.
func (um *UserManager) Signup(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := errors.Join(
		models.ValidateUsername(username),
		models.ValidateEmail(email),
		models.ValidatePassword(password),
	); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	um.mu.Lock()
	defer um.mu.Unlock()

	if _, err := um.store.GetUser(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}
	if _, err := um.store.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := um.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info(ctx, "Пользователь зарегистрирован", "user", username)
	return nil
}

// Login проверяет пароль и выдаёт токен. Неизвестный пользователь и неверный
// пароль неразличимы: оба дают auth.ErrBadPassword.
func (um *UserManager) Login(ctx context.Context, username, password string) (string, error) {
	user, err := um.store.GetUser(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", auth.ErrBadPassword
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return "", err
	}
	return um.tokens.Issue(user.Username, user.Email)
}

func (um *UserManager) Verify(token string) (*auth.Claims, error) {
	return um.tokens.Verify(token)
}
