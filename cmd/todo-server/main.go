package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-chat/internal/agent"
	"todo-chat/internal/auth"
	"todo-chat/internal/config"
	"todo-chat/internal/llm"
	"todo-chat/internal/logger"
	"todo-chat/internal/manager"
	"todo-chat/internal/server"
	"todo-chat/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("TODO_CONFIG"), "path to YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error(context.Background(), err, "Сервер остановлен с ошибкой")
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.SetOutput(os.Stderr, cfg.IsDevelopment())
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.InsecureSecret() {
		logger.Warn(ctx, "JWT_SECRET не задан, используется секрет по умолчанию")
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tasks := manager.NewTaskManager(store)
	users := manager.NewUserManager(store, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))

	var completer llm.Completer
	if c := llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model); c != nil {
		completer = c
		logger.Info(ctx, "LLM подключена", "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)
	} else {
		logger.Warn(ctx, "Ключ LLM не задан, чат работает на правилах")
	}

	router := server.NewRouter(server.Options{
		Tasks:       tasks,
		Users:       users,
		Agent:       agent.New(tasks, completer),
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Сервер запущен", "addr", cfg.Addr(), "env", cfg.Server.Env, "storage", cfg.Storage.Driver, "version", server.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Останавливаем сервер")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info(context.Background(), "Сервер остановлен")
	return nil
}

// openStorage открывает JSON-базу или SQLite. Для JSON при storage.watch
// запускается слежение за файлами, оно живёт до отмены ctx.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := storage.NewSQLiteStorage(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "SQLite хранилище инициализировано", "path", cfg.SQLitePath())
		return s, nil
	default:
		s, err := storage.NewJSONStorage(cfg.TasksFile(), cfg.UsersFile())
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "JSON хранилище инициализировано", "dir", cfg.Storage.DataDir)
		if cfg.Storage.Watch {
			go func() {
				if err := s.Watch(ctx); err != nil {
					logger.Error(ctx, err, "Слежение за JSON-файлами остановлено")
				}
			}()
		}
		return s, nil
	}
}
