package agent

import (
	"slices"
	"sync"

	"todo-chat/internal/models"
)

const (
	// historyLimit: сколько реплик хранится в сессии
	historyLimit = 8
	// contextLimit: сколько последних реплик уходит в LLM
	contextLimit = 6
)

// pendingTask: задача, для которой ждём срок и/или приоритет
type pendingTask struct {
	Title    string
	DueDate  string
	Priority models.Priority
}

func (p *pendingTask) complete() bool {
	return p.DueDate != "" && p.Priority != ""
}

// session: состояние диалога одного пользователя
type session struct {
	mu      sync.Mutex
	history []models.ChatMessage
	pending *pendingTask
}

func (s *session) record(role, content string) {
	s.history = append(s.history, models.ChatMessage{Role: role, Content: content})
	if len(s.history) > historyLimit {
		s.history = slices.Clone(s.history[len(s.history)-historyLimit:])
	}
}

// recent: хвост истории для контекста LLM
func (s *session) recent() []models.ChatMessage {
	if len(s.history) <= contextLimit {
		return slices.Clone(s.history)
	}
	return slices.Clone(s.history[len(s.history)-contextLimit:])
}

type sessions struct {
	mu     sync.Mutex
	byUser map[string]*session
}

func (ss *sessions) get(username string) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.byUser == nil {
		ss.byUser = make(map[string]*session)
	}
	s, ok := ss.byUser[username]
	if !ok {
		s = &session{}
		ss.byUser[username] = s
	}
	return s
}
