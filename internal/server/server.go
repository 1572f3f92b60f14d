// Package server реализует REST API: авторизация, чат с агентом и операции над задачами.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"todo-chat/internal/agent"
	"todo-chat/internal/logger"
	"todo-chat/internal/manager"
)

const Version = "2.2.0"

type Options struct {
	Tasks       *manager.TaskManager
	Users       *manager.UserManager
	Agent       *agent.Agent
	CORSOrigins []string
}

func NewRouter(opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", rootHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", signupHandler(opts.Users))
		r.Post("/login", loginHandler(opts.Users))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(opts.Users))

			r.Get("/verify", verifyHandler)

			r.Post("/chat", chatHandler(opts.Agent))
			r.Post("/chat/clear", clearChatHandler(opts.Agent))
			r.Get("/chat/history", historyHandler(opts.Agent))

			r.Get("/tasks", listTasksHandler(opts.Tasks))
			r.Post("/tasks", addTaskHandler(opts.Tasks))
			r.Get("/tasks/stats", statsHandler(opts.Tasks))
			r.Get("/tasks/{id}", getTaskHandler(opts.Tasks))
			r.Patch("/tasks/{id}", updateTaskHandler(opts.Tasks))
			r.Delete("/tasks/{id}", deleteTaskHandler(opts.Tasks))
		})
	})

	return r
}

func rootHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "todo-chat API is running",
		"version": Version,
		"status":  "healthy",
	})
}
