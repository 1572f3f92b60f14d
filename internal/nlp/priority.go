package nlp

import (
	"regexp"
	"strings"

	"todo-chat/internal/models"
)

// синонимы с типичными опечатками
var prioritySynonyms = []struct {
	priority models.Priority
	words    []string
}{
	{models.PriorityUrgent, []string{"urgent", "urgnt", "urget", "asap", "critical", "immdiate", "immediate", "immediately", "urgently", "critcal", "criti", "assp"}},
	{models.PriorityHigh, []string{"high", "hgh", "hi", "important", "imprtant", "soon", "sn", "impt", "hig", "importnt"}},
	{models.PriorityMedium, []string{"medium", "medim", "medum", "normal", "normaal", "regular", "regulr", "mid", "norm", "med", "avg"}},
	{models.PriorityLow, []string{"low", "lo", "lw", "later", "latr", "laater", "minor", "ltr", "less"}},
}

var priorityPatterns = func() map[models.Priority]*regexp.Regexp {
	m := make(map[models.Priority]*regexp.Regexp, len(prioritySynonyms))
	for _, s := range prioritySynonyms {
		m[s.priority] = wordsPattern(s.words)
	}
	return m
}()

// ExtractPriority ищет приоритет по синонимам (целыми словами), затем нечётко
// по отдельным словам не короче 4 букв.
func ExtractPriority(text string) (models.Priority, bool) {
	lower := strings.ToLower(text)
	for _, s := range prioritySynonyms {
		if priorityPatterns[s.priority].MatchString(lower) {
			return s.priority, true
		}
	}

	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,!?;:")
		if len(word) < 4 {
			continue
		}
		for _, s := range prioritySynonyms {
			long := make([]string, 0, len(s.words))
			for _, w := range s.words {
				if len(w) >= 4 {
					long = append(long, w)
				}
			}
			if _, ok := FuzzyMatch(word, long, 0.8); ok {
				return s.priority, true
			}
		}
	}
	return "", false
}

// wordsPattern собирает регулярку "\b(w1|w2|...)\b" без учёта регистра
func wordsPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
