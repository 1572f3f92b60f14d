package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"todo-chat/internal/models"
)

// понедельник
var base = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"buy milk today", "2025-10-20"},
		{"buy milk tmrw", "2025-10-21"},
		{"Call mom Tomorrow", "2025-10-21"},
		{"pay rent day after tomorrow", "2025-10-22"},
		{"report next week", "2025-10-27"},
		{"report nxt wk", "2025-10-27"},
		{"finish it this week", "2025-10-24"},
		{"dentist in 3 days", "2025-10-23"},
		{"vacation in 2 weeks", "2025-11-03"},
		{"meeting next monday", "2025-10-27"},
		{"meeting next friday", "2025-10-24"},
		{"deadline 2025-12-01", "2025-12-01"},
		{"deadline 5/11/2025", "2025-11-05"},
		{"deadline 28-10-2025", "2025-10-28"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseDate(tt.text, base)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateNoMatch(t *testing.T) {
	for _, text := range []string{"buy milk", "deadline 2025-13-45", "toddler party"} {
		_, ok := ParseDate(text, base)
		assert.False(t, ok, text)
	}
}

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		text string
		want models.Priority
		ok   bool
	}{
		{"urgent: call the bank", models.PriorityUrgent, true},
		{"need this ASAP", models.PriorityUrgent, true},
		{"Need to urgently buy groceries", models.PriorityUrgent, true},
		{"important meeting", models.PriorityHigh, true},
		{"imprtnt meeting", models.PriorityHigh, true},
		{"normal", models.PriorityMedium, true},
		{"do it later", models.PriorityLow, true},
		// "hi" внутри "this" не считается
		{"this thing", "", false},
		{"buy milk", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractPriority(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasTaskIntent(t *testing.T) {
	assert.True(t, HasTaskIntent("Buy flowers"))
	assert.True(t, HasTaskIntent("I need to see the doctor"))
	assert.True(t, HasTaskIntent("don't forget the keys"))
	assert.False(t, HasTaskIntent("Hello, I am John"))
	assert.False(t, HasTaskIntent("budget talks are boring")) // "get" внутри "budget"
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Buy milk tomorrow urgent", "Buy milk"},
		{"Call mom next friday high priority", "Call mom"},
		{"remind me to call the dentist in 3 days", "call the dentist"},
		{"add task finish report by 2025-11-01, low", "finish report by"},
		{"I need to pay rent today", "pay rent"},
		{"tomorrow", "tomorrow"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.text))
		})
	}
}

func TestRatioAndFuzzyMatch(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Buy Milk", "buy milk"))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.InDelta(t, 0.875, Ratio("buy milk", "buy silk"), 1e-9)

	got, ok := FuzzyMatch("by milk", []string{"call mom", "buy milk"}, DefaultThreshold)
	assert.True(t, ok)
	assert.Equal(t, "buy milk", got)

	_, ok = FuzzyMatch("pay rent", []string{"call mom"}, DefaultThreshold)
	assert.False(t, ok)
}
