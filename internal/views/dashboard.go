// Package views holds the pure list logic behind the task screens: dashboard
// counters, tab filtering and pagination. Nothing here does I/O.
package views

import (
	"math"
	"time"

	"todo-chat/internal/models"
)

// Stats: сводка для дашборда.
type Stats struct {
	Total          int `json:"total"`
	Todo           int `json:"todo"`
	InProgress     int `json:"in_progress"`
	Completed      int `json:"completed"`
	CompletionRate int `json:"completion_rate"`

	// Только невыполненные задачи
	Urgent int `json:"urgent"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`

	// CompletedToday считает выполненные задачи, созданные сегодня (UTC).
	// Времени выполнения здесь нет, берётся created_at.
	CompletedToday int `json:"completed_today"`
}

// Dashboard считает сводку по списку задач. Неизвестные статусы и приоритеты
// просто ни с чем не совпадают.
func Dashboard(tasks []models.Task, now time.Time) Stats {
	var s Stats
	today := dayUTC(now)

	for _, t := range tasks {
		s.Total++
		switch t.Status {
		case models.StatusTodo:
			s.Todo++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusCompleted:
			s.Completed++
			if !t.CreatedAt.IsZero() && dayUTC(t.CreatedAt).Equal(today) {
				s.CompletedToday++
			}
		}

		if t.IsCompleted() {
			continue
		}
		switch t.Priority {
		case models.PriorityUrgent:
			s.Urgent++
		case models.PriorityHigh:
			s.High++
		case models.PriorityMedium:
			s.Medium++
		case models.PriorityLow:
			s.Low++
		}
	}

	s.CompletionRate = CompletionRate(s.Completed, s.Total)
	return s
}

// CompletionRate = round(completed/total*100), 0 для пустого списка.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
