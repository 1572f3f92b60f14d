package agent

import (
	"context"
	"regexp"
	"strings"

	"todo-chat/internal/models"
	"todo-chat/internal/nlp"
)

type rule struct {
	function string
	arg      string
}

var (
	listRe      = regexp.MustCompile(`(?i)^\s*(?:show|list|display|what are)\b|\bmy tasks\b`)
	completeRe  = regexp.MustCompile(`(?i)^\s*(?:complete|done(?:\s+with)?|mark)\s+(.+?)(?:\s+as\s+(?:done|complete|completed))?[.!]?\s*$`)
	deleteRe    = regexp.MustCompile(`(?i)^\s*(?:delete|remove|drop)\s+(.+?)[.!]?\s*$`)
	searchRe    = regexp.MustCompile(`(?i)^\s*(?:search|find)(?:\s+for)?\s+(.+?)[.!?]?\s*$`)
	taskWordRe  = regexp.MustCompile(`(?i)^(?:the\s+)?task\s+`)
	greetingRe  = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|good (?:morning|afternoon|evening))\b`)
	completedRe = regexp.MustCompile(`(?i)\b(?:completed|done|finished)\b`)
	openRe      = regexp.MustCompile(`(?i)\b(?:todo|pending|open)\b`)
)

// matchRule распознаёт операции над задачами без LLM
func matchRule(message string) (rule, bool) {
	if m := completeRe.FindStringSubmatch(message); m != nil {
		return rule{FuncCompleteTask, cleanTitle(m[1])}, true
	}
	if m := deleteRe.FindStringSubmatch(message); m != nil {
		return rule{FuncDeleteTask, cleanTitle(m[1])}, true
	}
	if m := searchRe.FindStringSubmatch(message); m != nil {
		return rule{FuncSearchTasks, strings.TrimSpace(m[1])}, true
	}
	if listRe.MatchString(message) {
		return rule{function: FuncListTasks}, true
	}
	return rule{}, false
}

func cleanTitle(s string) string {
	return strings.TrimSpace(taskWordRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

// byRules отвечает без LLM
func (a *Agent) byRules(ctx context.Context, username, message string) (string, error) {
	r, ok := matchRule(message)
	if !ok {
		if greetingRe.MatchString(message) {
			return "👋 Hi! Tell me what you need to do, e.g. \"buy milk tomorrow, high priority\".", nil
		}
		return "I can create, list, complete and delete tasks. Try \"show my tasks\" or \"call mom tomorrow, urgent\".", nil
	}

	call := &FunctionCall{Function: r.function}
	switch r.function {
	case FuncListTasks:
		switch {
		case completedRe.MatchString(message):
			call.Parameters.Status = string(models.StatusCompleted)
		case openRe.MatchString(message):
			call.Parameters.Status = string(models.StatusTodo)
		}
		if p, ok := nlp.ExtractPriority(message); ok {
			call.Parameters.Priority = string(p)
		}
	case FuncSearchTasks:
		call.Parameters.Query = r.arg
	default:
		call.Parameters.Title = r.arg
	}
	return a.execute(ctx, username, call)
}
