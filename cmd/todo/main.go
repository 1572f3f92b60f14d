// Command todo: терминальный клиент todo-chat: вход, список задач по
// вкладкам, дашборд и чат с агентом.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-chat/internal/app"
	"todo-chat/internal/client"
	"todo-chat/internal/logger"
	"todo-chat/internal/prefs"
	"todo-chat/internal/render"
)

const defaultAPI = "http://localhost:7860"

var nowFunc = time.Now

// env: то, что нужно всем подкомандам
type env struct {
	shell *app.Shell
}

func (e *env) renderer() *render.Renderer {
	return render.New(render.ForMode(e.shell.Snapshot().DarkMode))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var (
		apiURL    string
		prefsPath string
		debug     bool
	)

	root := &cobra.Command{
		Use:           "todo",
		Short:         "todo - chat-driven todo manager",
		Long:          `todo talks to a todo-chat backend: log in, browse tasks by tab, and manage them by chatting with the assistant.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.SetOutput(os.Stderr, true)
			if debug {
				logger.SetLevel(logger.LevelDebug)
			} else {
				logger.SetLevel(logger.LevelError)
			}

			if prefsPath == "" {
				p, err := prefs.DefaultPath()
				if err != nil {
					return err
				}
				prefsPath = p
			}
			e.shell = app.NewShell(client.New(apiURL), prefs.NewFileStore(prefsPath))
			// без сети сессия остаётся, команды сами сообщат об ошибке
			if err := e.shell.Restore(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
			return nil
		},
	}

	api := os.Getenv("TODO_API_URL")
	if api == "" {
		api = defaultAPI
	}
	root.PersistentFlags().StringVar(&apiURL, "api", api, "backend URL (TODO_API_URL)")
	root.PersistentFlags().StringVar(&prefsPath, "session-file", "", "where to keep the session (default $XDG_CONFIG_HOME/todo-chat/session.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	root.AddCommand(
		loginCmd(e),
		signupCmd(e),
		logoutCmd(e),
		tasksCmd(e),
		statsCmd(e),
		chatCmd(e),
		doneCmd(e),
		rmCmd(e),
		themeCmd(e),
		exportCmd(e),
	)
	return root
}

// requireLogin загружает задачи текущей сессии
func (e *env) requireLogin(ctx context.Context) error {
	if !e.shell.Snapshot().LoggedIn() {
		return fmt.Errorf("not logged in, run: todo login <username>")
	}
	return e.shell.Refresh(ctx)
}
