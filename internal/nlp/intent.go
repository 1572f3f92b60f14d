package nlp

import (
	"regexp"
	"strings"
)

var taskVerbs = wordsPattern([]string{
	"buy", "purchase", "get", "grab", "pick up",
	"call", "phone", "contact", "reach", "text",
	"send", "email", "message", "forward", "reply",
	"meet", "meeting", "schedule", "book", "arrange",
	"finish", "complete", "submit", "deliver", "hand in",
	"write", "draft", "prepare", "create", "make",
	"review", "check", "verify", "confirm", "validate",
	"update", "fix", "repair", "replace", "modify",
	"order", "reserve", "organize", "plan", "setup",
	"pay", "renew", "cancel", "return", "refund",
	"clean", "wash", "cook", "file",
	"print", "scan", "copy", "download", "upload",
	"install", "uninstall", "backup", "restore",
})

var taskPhrases = []string{
	"remind me", "reminder", "don't forget", "dont forget",
	"need to", "have to", "must", "should", "want to",
	"going to", "got to", "gotta", "supposed to",
}

// фразы-обёртки, которые не относятся к заголовку задачи
var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:create|add|new)\s+task\b`),
	regexp.MustCompile(`(?i)\bremind(?:er)?\s+(?:me\s+)?to\b`),
	regexp.MustCompile(`(?i)\bi\s+(?:need|want|have)\s+to\b`),
	regexp.MustCompile(`(?i)\bi\s+(?:should|must)\b`),
	regexp.MustCompile(`(?i)\bi'm\s+going\s+to\b`),
	regexp.MustCompile(`(?i)\bdo(?:n'|n)t\s+forget(?:\s+to)?\b`),
	regexp.MustCompile(`(?i)\b(?:gotta|got\s+to)\b`),
	regexp.MustCompile(`(?i)\b(?:task|to\s+do|todo)\b`),
	regexp.MustCompile(`(?i)\bpriority\b`),
}

var spacesRe = regexp.MustCompile(`\s+`)

// HasTaskIntent: в тексте есть глагол действия или фраза вроде "need to".
func HasTaskIntent(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if taskVerbs.MatchString(lower) {
		return true
	}
	for _, p := range taskPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ExtractTitle чистит реплику до заголовка задачи: убирает даты, приоритеты
// и служебные фразы. Если ничего не осталось, возвращает исходный текст.
func ExtractTitle(text string) string {
	title := stripDates(text)
	for _, re := range priorityPatterns {
		title = re.ReplaceAllString(title, "")
	}
	for _, re := range titleNoise {
		title = re.ReplaceAllString(title, "")
	}
	title = strings.Trim(spacesRe.ReplaceAllString(title, " "), " .,!?;:-")
	if title == "" {
		return strings.TrimSpace(text)
	}
	return title
}

// WordCount: число слов, разделённых пробелами
func WordCount(text string) int {
	return len(strings.Fields(text))
}
