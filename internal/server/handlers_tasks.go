package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"todo-chat/internal/logger"
	"todo-chat/internal/manager"
	"todo-chat/internal/models"
	"todo-chat/internal/storage"
)

type taskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
}

func listTasksHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := models.TaskFilter{
			Category: q.Get("category"),
			Query:    q.Get("q"),
		}
		if s := q.Get("status"); s != "" {
			st, err := models.ParseStatus(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter.Status = st
		}
		if p := q.Get("priority"); p != "" {
			pr, err := models.ParsePriority(p)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter.Priority = pr
		}

		tasks, err := tm.ListTasks(r.Context(), currentUser(r).Username, filter)
		if err != nil {
			taskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Count: len(tasks)})
	}
}

func addTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateTaskRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		task, err := tm.AddTask(r.Context(), currentUser(r).Username, req)
		if err != nil {
			taskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func statsHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := tm.Stats(r.Context(), currentUser(r).Username)
		if err != nil {
			taskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func getTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := tm.GetTask(r.Context(), currentUser(r).Username, chi.URLParam(r, "id"))
		if err != nil {
			taskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func updateTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var upd models.TaskUpdate
		if !decodeJSON(w, r, &upd) {
			return
		}

		user := currentUser(r)
		task, err := tm.UpdateTask(r.Context(), user.Username, chi.URLParam(r, "id"), upd)
		if err != nil {
			taskError(w, r, err)
			return
		}
		logger.Debug(r.Context(), "Задача обновлена", "user", user.Username, "id", task.ID, "status", task.Status)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Task updated successfully",
			"task":    task,
		})
	}
}

func deleteTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tm.DeleteTask(r.Context(), currentUser(r).Username, chi.URLParam(r, "id")); err != nil {
			taskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
	}
}

// taskError переводит ошибки менеджера в HTTP-статусы
func taskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case manager.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(r.Context(), err, "Ошибка операции с задачей", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
