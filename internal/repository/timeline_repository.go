package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/nexura/internal/model"
)

// TimelineRepo stores timeline events and reads them back joined with the
// habit and goal rows they point at.
type TimelineRepo struct{ db DBTX }

func NewTimelineRepo(db DBTX) *TimelineRepo { return &TimelineRepo{db: db} }

// Insert stores one event.
func (r *TimelineRepo) Insert(ctx context.Context, e *model.TimelineEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timeline_events (id, user_id, event_type, event_name, start_time, duration, metadata,
			related_habit_id, related_goal_id, related_expense_id, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.UserID, e.EventType, e.EventName, e.StartTime, nullable(e.Duration), nullable(e.Metadata),
		nullable(e.RelatedHabitID), nullable(e.RelatedGoalID), nullable(e.RelatedExpenseID), e.CreatedAt)
	return translate(err)
}

// Between returns the user's events with start_time in [from, to), oldest
// first. Events whose related expense was deleted are dropped.
func (r *TimelineRepo) Between(ctx context.Context, userID string, from, to time.Time) ([]model.TimelineRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.event_type, t.event_name, t.start_time, t.duration, t.metadata,
			t.related_habit_id, t.related_goal_id, t.related_expense_id, t.created_at,
			h.icon, h.color, g.icon, g.color
		 FROM timeline_events t
		 LEFT JOIN habits h ON h.id = t.related_habit_id
		 LEFT JOIN goals g ON g.id = t.related_goal_id
		 LEFT JOIN expenses e ON e.id = t.related_expense_id
		 WHERE t.user_id=? AND t.start_time>=? AND t.start_time<?
		   AND (t.related_expense_id IS NULL OR e.is_deleted=FALSE)
		 ORDER BY t.start_time ASC, t.created_at ASC`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimelineRow
	for rows.Next() {
		var (
			tr                                   model.TimelineRow
			duration                             sql.NullInt64
			metadata, habitID, goalID, expenseID sql.NullString
			hIcon, hColor, gIcon, gColor         sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.EventType, &tr.EventName, &tr.StartTime, &duration,
			&metadata, &habitID, &goalID, &expenseID, &tr.CreatedAt,
			&hIcon, &hColor, &gIcon, &gColor); err != nil {
			return nil, err
		}
		tr.StartTime, tr.CreatedAt = tr.StartTime.UTC(), tr.CreatedAt.UTC()
		tr.Duration = intPtr(duration)
		tr.Metadata = strPtr(metadata)
		tr.RelatedHabitID, tr.RelatedGoalID, tr.RelatedExpenseID = strPtr(habitID), strPtr(goalID), strPtr(expenseID)
		tr.HabitIcon, tr.HabitColor = strPtr(hIcon), strPtr(hColor)
		tr.GoalIcon, tr.GoalColor = strPtr(gIcon), strPtr(gColor)
		out = append(out, tr)
	}
	return out, rows.Err()
}
