package model

import "time"

// Timeline event types.
const (
	EventHabit   = "HABIT"
	EventExpense = "EXPENSE"
	EventGoal    = "GOAL"
	EventCustom  = "CUSTOM"
)

// TimelineEvent is a row in `timeline_events`, written by the habit, goal
// and expense services. At most one of the Related* ids is set.
type TimelineEvent struct {
	ID               string
	UserID           string
	EventType        string
	EventName        string
	StartTime        time.Time
	Duration         *int
	Metadata         *string
	RelatedHabitID   *string
	RelatedGoalID    *string
	RelatedExpenseID *string
	CreatedAt        time.Time
}

// TimelineRow is an event joined with the display attributes of the habit
// or goal it refers to.
type TimelineRow struct {
	TimelineEvent
	HabitIcon  *string
	HabitColor *string
	GoalIcon   *string
	GoalColor  *string
}

// TimelineItem is the rendered form of one event.
type TimelineItem struct {
	ID       string  `json:"id"`
	Time     string  `json:"time"`
	Event    string  `json:"event"`
	Type     string  `json:"type"`
	Duration *int    `json:"duration"`
	Color    string  `json:"color"`
	Icon     string  `json:"icon"`
	Metadata *string `json:"metadata"`
}

// Timeline is one day of events.
type Timeline struct {
	Date   string         `json:"date"`
	Events []TimelineItem `json:"events"`
}
