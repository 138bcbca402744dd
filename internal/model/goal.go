package model

import (
	"math"
	"time"
)

// Goal is a measurable target (`goals`). Progress is not stored; it is
// derived from Current and Target whenever a goal is returned.
type Goal struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Target       float64    `json:"target"`
	Current      float64    `json:"current"`
	Unit         string     `json:"unit"`
	Icon         *string    `json:"icon"`
	Color        *string    `json:"color"`
	Deadline     *string    `json:"deadline"`
	DeadlineDate *time.Time `json:"deadlineDate"`
	IsCompleted  bool       `json:"isCompleted"`
	CompletedAt  *time.Time `json:"completedAt"`
	Progress     float64    `json:"progress"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// WithProgress returns g with Progress set to current/target as a
// percentage capped at 100 and rounded to one decimal. A non-positive
// target yields 0.
func (g Goal) WithProgress() Goal {
	if g.Target <= 0 {
		g.Progress = 0
		return g
	}
	p := math.Min(g.Current/g.Target*100, 100)
	g.Progress = math.Round(p*10) / 10
	return g
}

// GoalUpdate carries the mutable goal fields; nil means unchanged.
type GoalUpdate struct {
	Name         *string
	Target       *float64
	Current      *float64
	Deadline     *string
	DeadlineDate *time.Time
}

// Allowed goal types.
var GoalTypes = []string{"habit", "budget", "milestone"}
