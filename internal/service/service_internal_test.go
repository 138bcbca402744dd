package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/nexura/internal/model"
)

func TestHandlePrefix(t *testing.T) {
	tests := []struct{ name, want string }{
		{"Test User", "TEST"},
		{"  alex  ", "ALEX"},
		{"Jean-Luc Picard", "JEANLUC"},
		{"Zoë", "ZO"},
		{"李雷", "USER"},
		{"", "USER"},
		{"abcdefghijklmnopqrstuvwxyzabcdefghij", "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, handlePrefix(tt.name), tt.name)
	}
}

func TestNextHandle(t *testing.T) {
	tests := []struct{ latest, want string }{
		{"", "TEST-01"},
		{"TEST-01", "TEST-02"},
		{"TEST-09", "TEST-10"},
		{"TEST-99", "TEST-100"},
		{"TEST-100", "TEST-101"},
		{"TEST-xx", "TEST-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextHandle("TEST", tt.latest), tt.latest)
	}
}

func TestStreak(t *testing.T) {
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	at := func(daysAgo int, hour int) model.HabitCompletion {
		d := utcDay(now).AddDate(0, 0, -daysAgo).Add(time.Duration(hour) * time.Hour)
		return model.HabitCompletion{CompletedAt: d}
	}

	assert.Equal(t, 0, streak(nil, now))
	assert.Equal(t, 1, streak([]model.HabitCompletion{at(0, 8)}, now))
	assert.Equal(t, 3, streak([]model.HabitCompletion{at(0, 8), at(1, 23), at(2, 1)}, now))
	// yesterday still counts when today is not done yet
	assert.Equal(t, 2, streak([]model.HabitCompletion{at(1, 8), at(2, 8)}, now))
	// a missed day breaks the run
	assert.Equal(t, 1, streak([]model.HabitCompletion{at(0, 8), at(2, 8), at(3, 8)}, now))
	assert.Equal(t, 0, streak([]model.HabitCompletion{at(2, 8)}, now))
}

func TestTrend(t *testing.T) {
	assert.Equal(t, "stable", trend(0, 0))
	assert.Equal(t, "increasing", trend(10, 0))
	assert.Equal(t, "stable", trend(105, 100))
	assert.Equal(t, "increasing", trend(120, 100))
	assert.Equal(t, "decreasing", trend(80, 100))
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		period, label string
		from          time.Time
	}{
		{"today", "today", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"week", "week", now.AddDate(0, 0, -7)},
		{"month", "month", time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)},
		{"year", "year", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"", "30d", now.AddDate(0, 0, -30)},
		{"decade", "30d", now.AddDate(0, 0, -30)},
	}
	for _, tt := range tests {
		label, from := periodRange(tt.period, now)
		assert.Equal(t, tt.label, label)
		assert.True(t, tt.from.Equal(from), tt.period)
	}
}

func TestFirstSet(t *testing.T) {
	empty, red := "", "#f00"
	assert.Equal(t, "x", firstSet("x"))
	assert.Equal(t, "x", firstSet("x", nil, &empty))
	assert.Equal(t, "#f00", firstSet("x", nil, &red))
}
