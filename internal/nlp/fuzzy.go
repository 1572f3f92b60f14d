// Package nlp: эвристики разбора реплик чата: даты, приоритеты, заголовки задач.
package nlp

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold: минимальное сходство для нечёткого совпадения
const DefaultThreshold = 0.7

// Ratio: сходство строк в [0,1] по расстоянию Левенштейна (без учёта регистра).
func Ratio(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// FuzzyMatch возвращает самого похожего кандидата со сходством не ниже threshold.
func FuzzyMatch(text string, candidates []string, threshold float64) (string, bool) {
	best, bestRatio := "", 0.0
	for _, c := range candidates {
		if r := Ratio(text, c); r >= threshold && r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return best, best != ""
}
