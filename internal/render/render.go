package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"todo-chat/internal/models"
	"todo-chat/internal/views"
)

type Renderer struct {
	theme Theme

	title    lipgloss.Style
	subtle   lipgloss.Style
	text     lipgloss.Style
	done     lipgloss.Style
	tab      lipgloss.Style
	tabOn    lipgloss.Style
	card     lipgloss.Style
	user     lipgloss.Style
	bot      lipgloss.Style
	errStyle lipgloss.Style
}

func New(theme Theme) *Renderer {
	return &Renderer{
		theme:    theme,
		title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		subtle:   lipgloss.NewStyle().Foreground(theme.Subtle),
		text:     lipgloss.NewStyle().Foreground(theme.Text),
		done:     lipgloss.NewStyle().Foreground(theme.Subtle).Strikethrough(true),
		tab:      lipgloss.NewStyle().Foreground(theme.Subtle).Padding(0, 1),
		tabOn:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).Underline(true).Padding(0, 1),
		card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(theme.Border).Padding(0, 1),
		user:     lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		bot:      lipgloss.NewStyle().Foreground(theme.Assistant),
		errStyle: lipgloss.NewStyle().Foreground(theme.Error),
	}
}

func (r *Renderer) Theme() Theme {
	return r.theme
}

// Dashboard: карточки со счётчиками
func (r *Renderer) Dashboard(s views.Stats) string {
	cards := []string{
		r.stat("Total", s.Total),
		r.stat("To do", s.Todo),
		r.stat("In progress", s.InProgress),
		r.stat("Completed", s.Completed),
		r.card.Render(r.subtle.Render("Done") + "\n" + r.title.Render(fmt.Sprintf("%d%%", s.CompletionRate))),
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	prio := fmt.Sprintf("%s %d  %s %d  %s %d  %s %d  %s %d",
		r.priority(models.PriorityUrgent, "urgent"), s.Urgent,
		r.priority(models.PriorityHigh, "high"), s.High,
		r.priority(models.PriorityMedium, "medium"), s.Medium,
		r.priority(models.PriorityLow, "low"), s.Low,
		r.subtle.Render("completed today"), s.CompletedToday,
	)
	return lipgloss.JoinVertical(lipgloss.Left, row, prio)
}

func (r *Renderer) stat(label string, n int) string {
	return r.card.Render(r.subtle.Render(label) + "\n" + r.title.Render(fmt.Sprint(n)))
}

// Tabs: строка вкладок, активная выделена
func (r *Renderer) Tabs(active views.Tab) string {
	rendered := make([]string, 0, len(views.Tabs))
	for _, tab := range views.Tabs {
		if tab == active {
			rendered = append(rendered, r.tabOn.Render(string(tab)))
		} else {
			rendered = append(rendered, r.tab.Render(string(tab)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// TaskPage: страница задач с подвалом "page N/M"
func (r *Renderer) TaskPage(page views.Page[models.Task]) string {
	var b strings.Builder
	if len(page.Items) == 0 {
		b.WriteString(r.subtle.Render("No tasks here."))
		b.WriteString("\n")
	}
	for _, t := range page.Items {
		b.WriteString(r.TaskLine(t))
		b.WriteString("\n")
	}
	b.WriteString(r.subtle.Render(fmt.Sprintf("page %d/%d · %d task(s)", page.Number, page.TotalPages, page.TotalItems)))
	return b.String()
}

func (r *Renderer) TaskLine(t models.Task) string {
	mark, title := "☐", r.text.Render(t.Title)
	if t.IsCompleted() {
		mark, title = "☑", r.done.Render(t.Title)
	}

	parts := []string{mark, title, r.priority(t.Priority, "["+string(t.Priority)+"]")}
	if t.DueDate != "" {
		parts = append(parts, r.subtle.Render("due "+t.DueDate))
	}
	parts = append(parts, r.subtle.Render(shortID(t.ID)))
	return strings.Join(parts, " ")
}

// Transcript: переписка с агентом
func (r *Renderer) Transcript(msgs []models.ChatMessage) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		switch m.Role {
		case models.RoleUser:
			b.WriteString(r.user.Render("you › "))
			b.WriteString(m.Content)
		default:
			b.WriteString(r.bot.Render("bot › "))
			b.WriteString(r.bot.Render(m.Content))
		}
	}
	return b.String()
}

func (r *Renderer) Error(msg string) string {
	return r.errStyle.Render(msg)
}

func (r *Renderer) priority(p models.Priority, label string) string {
	color, ok := r.theme.Priority[p]
	if !ok {
		return r.subtle.Render(label)
	}
	return lipgloss.NewStyle().Foreground(color).Render(label)
}

// shortID: первые 8 символов uuid, их хватает для done/rm
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
