// Package render рисует дашборд, вкладки, страницы задач и переписку
// для терминала в светлой или тёмной теме.
package render

import (
	"github.com/charmbracelet/lipgloss"

	"todo-chat/internal/models"
)

// Theme: палитра одной темы
type Theme struct {
	Name      string
	Text      lipgloss.Color
	Subtle    lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	Priority  map[models.Priority]lipgloss.Color
	Assistant lipgloss.Color
}

func Light() Theme {
	return Theme{
		Name:      "light",
		Text:      lipgloss.Color("#1F2937"),
		Subtle:    lipgloss.Color("#6B7280"),
		Accent:    lipgloss.Color("#4F46E5"),
		Success:   lipgloss.Color("#15803D"),
		Error:     lipgloss.Color("#B91C1C"),
		Border:    lipgloss.Color("#D1D5DB"),
		Assistant: lipgloss.Color("#0E7490"),
		Priority: map[models.Priority]lipgloss.Color{
			models.PriorityUrgent: lipgloss.Color("#DC2626"),
			models.PriorityHigh:   lipgloss.Color("#EA580C"),
			models.PriorityMedium: lipgloss.Color("#CA8A04"),
			models.PriorityLow:    lipgloss.Color("#16A34A"),
		},
	}
}

func Dark() Theme {
	return Theme{
		Name:      "dark",
		Text:      lipgloss.Color("#E5E7EB"),
		Subtle:    lipgloss.Color("#9CA3AF"),
		Accent:    lipgloss.Color("#A5B4FC"),
		Success:   lipgloss.Color("#4ADE80"),
		Error:     lipgloss.Color("#F87171"),
		Border:    lipgloss.Color("#374151"),
		Assistant: lipgloss.Color("#67E8F9"),
		Priority: map[models.Priority]lipgloss.Color{
			models.PriorityUrgent: lipgloss.Color("#F87171"),
			models.PriorityHigh:   lipgloss.Color("#FB923C"),
			models.PriorityMedium: lipgloss.Color("#FACC15"),
			models.PriorityLow:    lipgloss.Color("#4ADE80"),
		},
	}
}

func ForMode(dark bool) Theme {
	if dark {
		return Dark()
	}
	return Light()
}
