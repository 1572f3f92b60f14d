package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"todo-chat/internal/models"
)

// ключевые слова дат с опечатками; порядок важен: "day after tomorrow" раньше "tomorrow"
var datePhrases = []struct {
	name  string
	words []string
	days  func(base time.Time) int
}{
	{"day_after_tomorrow", []string{"day after tomorrow", "dayaftertomorrow", "day aftr tmrw", "overmorrow"},
		func(time.Time) int { return 2 }},
	{"today", []string{"today", "tody", "todya", "2day", "tod", "tday", "2dy"},
		func(time.Time) int { return 0 }},
	{"tomorrow", []string{"tomorrow", "tomorrw", "tmrw", "tmw", "tomorow", "tmmrw", "tomrw", "tmrrw", "2moro", "2morrow"},
		func(time.Time) int { return 1 }},
	{"next_week", []string{"next week", "nxt week", "next wk", "nxtweek", "nxt wk", "nxt wek", "next weeek"},
		func(time.Time) int { return 7 }},
	// до ближайшей пятницы
	{"this_week", []string{"this week", "thisweek", "this wk", "ths week", "ths wk", "dis week"},
		func(base time.Time) int { return (int(time.Friday) - int(base.Weekday()) + 7) % 7 }},
}

var (
	datePhrasePatterns = func() []*regexp.Regexp {
		res := make([]*regexp.Regexp, len(datePhrases))
		for i, p := range datePhrases {
			res[i] = wordsPattern(p.words)
		}
		return res
	}()

	inDaysRe    = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+days?\b`)
	inWeeksRe   = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+weeks?\b`)
	nextDayRe   = regexp.MustCompile(`(?i)\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

// ParseDate извлекает срок из текста относительно base. Результат: YYYY-MM-DD.
// Явные даты (YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY) проверяются на корректность.
func ParseDate(text string, base time.Time) (string, bool) {
	day := func(n int) (string, bool) { return base.AddDate(0, 0, n).Format(models.DateLayout), true }

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := validDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := validDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}

	for i, p := range datePhrases {
		if datePhrasePatterns[i].MatchString(text) {
			return day(p.days(base))
		}
	}

	if m := inDaysRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return day(n)
	}
	if m := inWeeksRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return day(7 * n)
	}
	if m := nextDayRe.FindStringSubmatch(text); m != nil {
		ahead := int(weekdays[strings.ToLower(m[1])]) - int(base.Weekday())
		if ahead <= 0 {
			ahead += 7
		}
		return day(ahead)
	}
	return "", false
}

func validDate(year, month, dayOfMonth string) (string, bool) {
	if len(month) == 1 {
		month = "0" + month
	}
	if len(dayOfMonth) == 1 {
		dayOfMonth = "0" + dayOfMonth
	}
	s := year + "-" + month + "-" + dayOfMonth
	if models.ValidateDate(s) != nil {
		return "", false
	}
	return s, true
}

// stripDates убирает из текста все распознаваемые выражения дат
func stripDates(text string) string {
	for _, re := range datePhrasePatterns {
		text = re.ReplaceAllString(text, "")
	}
	for _, re := range []*regexp.Regexp{inDaysRe, inWeeksRe, nextDayRe, isoDateRe, slashDateRe} {
		text = re.ReplaceAllString(text, "")
	}
	return text
}
