package views

import (
	"fmt"
	"strings"
	"time"

	"todo-chat/internal/models"
)

type Tab string

const (
	TabAll       Tab = "all"
	TabToday     Tab = "today"
	TabWeek      Tab = "week"
	TabUrgent    Tab = "urgent"
	TabHigh      Tab = "high"
	TabCompleted Tab = "completed"
)

// Tabs в порядке отображения
var Tabs = []Tab{TabAll, TabToday, TabWeek, TabUrgent, TabHigh, TabCompleted}

// WeekSpan: горизонт вкладки "week"
const WeekSpan = 7 * 24 * time.Hour

func ParseTab(s string) (Tab, error) {
	tab := Tab(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tabs {
		if tab == known {
			return tab, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q (want one of all, today, week, urgent, high, completed)", s)
}

// FilterTab оставляет задачи выбранной вкладки, сохраняя исходный порядок.
// Нераспознанная вкладка ведёт себя как "all".
func FilterTab(tasks []models.Task, tab Tab, now time.Time) []models.Task {
	match := TabPredicate(tab, now)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if match(t) {
			out = append(out, t)
		}
	}
	return out
}

// TabPredicate возвращает условие вкладки. Даты сравниваются по календарному
// дню UTC. У "week" нет нижней границы: просроченные задачи тоже попадают.
func TabPredicate(tab Tab, now time.Time) func(models.Task) bool {
	today := dayUTC(now)
	weekEnd := today.Add(WeekSpan)

	switch tab {
	case TabToday:
		return func(t models.Task) bool {
			due, ok := t.Due()
			return ok && due.Equal(today) && !t.IsCompleted()
		}
	case TabWeek:
		return func(t models.Task) bool {
			due, ok := t.Due()
			return ok && !due.After(weekEnd) && !t.IsCompleted()
		}
	case TabUrgent:
		return func(t models.Task) bool {
			return t.Priority == models.PriorityUrgent && !t.IsCompleted()
		}
	case TabHigh:
		return func(t models.Task) bool {
			return t.Priority == models.PriorityHigh && !t.IsCompleted()
		}
	case TabCompleted:
		return func(t models.Task) bool {
			return t.IsCompleted()
		}
	default:
		return func(models.Task) bool { return true }
	}
}
