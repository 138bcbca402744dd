package model

import "time"

// Habit represents a recurring activity the user tracks, stored in the
// `habits` table. Streak counts consecutive days with a completion ending
// today or yesterday; LongestStreak is the best streak ever reached.
type Habit struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	Name             string            `json:"name"`
	Icon             *string           `json:"icon"`
	Color            *string           `json:"color"`
	TargetTime       *string           `json:"targetTime"`
	ReminderEnabled  bool              `json:"reminderEnabled"`
	IsActive         bool              `json:"isActive"`
	Streak           int               `json:"streak"`
	LongestStreak    int               `json:"longestStreak"`
	TotalCompletions int               `json:"totalCompletions"`
	LastCompletedAt  *time.Time        `json:"lastCompletedAt"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Completions      []HabitCompletion `json:"completions,omitempty"`
}

// HabitCompletion is one check-off of a habit (`habit_completions`).
type HabitCompletion struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habitId"`
	UserID      string    `json:"userId"`
	CompletedAt time.Time `json:"completedAt"`
	Notes       *string   `json:"notes"`
	Mood        *string   `json:"mood"`
}

// HabitUpdate carries the mutable habit fields; nil means unchanged.
type HabitUpdate struct {
	Name            *string
	Icon            *string
	Color           *string
	TargetTime      *string
	ReminderEnabled *bool
	IsActive        *bool
}

// Allowed completion moods.
var HabitMoods = []string{"great", "good", "okay", "bad"}
