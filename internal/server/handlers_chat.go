package server

import (
	"net/http"
	"strings"

	"todo-chat/internal/agent"
	"todo-chat/internal/logger"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func chatHandler(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "Message cannot be empty")
			return
		}

		user := currentUser(r)
		reply, err := a.Chat(r.Context(), user.Username, req.Message)
		if err != nil {
			logger.Error(r.Context(), err, "Ошибка обработки сообщения", "user", user.Username)
			writeError(w, http.StatusInternalServerError, "Error processing request")
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Response: reply})
	}
}

func clearChatHandler(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Clear(currentUser(r).Username)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation history cleared"})
	}
}

func historyHandler(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := a.History(currentUser(r).Username)
		writeJSON(w, http.StatusOK, map[string]any{"history": history, "count": len(history)})
	}
}
