package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/nexura/internal/model"
)

// HabitRepo provides ownership-scoped access to habits and their
// completions. Every query filters on both the habit id and the owning
// user id, and soft-deleted habits are invisible.
type HabitRepo struct{ db DBTX }

func NewHabitRepo(db DBTX) *HabitRepo { return &HabitRepo{db: db} }

const habitColumns = `id, user_id, name, icon, color, target_time, reminder_enabled, is_active,
	streak, longest_streak, total_completions, last_completed_at, created_at, updated_at`

func scanHabit(s rowScanner) (model.Habit, error) {
	var (
		h                   model.Habit
		icon, color, target sql.NullString
		lastCompleted       sql.NullTime
	)
	if err := s.Scan(&h.ID, &h.UserID, &h.Name, &icon, &color, &target, &h.ReminderEnabled, &h.IsActive,
		&h.Streak, &h.LongestStreak, &h.TotalCompletions, &lastCompleted, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return model.Habit{}, translate(err)
	}
	h.Icon, h.Color, h.TargetTime = strPtr(icon), strPtr(color), strPtr(target)
	h.LastCompletedAt = timePtr(lastCompleted)
	h.CreatedAt, h.UpdatedAt = h.CreatedAt.UTC(), h.UpdatedAt.UTC()
	return h, nil
}

// List returns the user's habits ordered by streak (desc) then newest
// first. active filters on is_active when non-nil.
func (r *HabitRepo) List(ctx context.Context, userID string, active *bool) ([]model.Habit, error) {
	q := "SELECT " + habitColumns + " FROM habits WHERE user_id=? AND is_deleted=FALSE"
	args := []any{userID}
	if active != nil {
		q += " AND is_active=?"
		args = append(args, *active)
	}
	q += " ORDER BY streak DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Get returns one habit owned by userID.
func (r *HabitRepo) Get(ctx context.Context, id, userID string) (model.Habit, error) {
	return scanHabit(r.db.QueryRowContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE id=? AND user_id=? AND is_deleted=FALSE", id, userID))
}

// Create inserts h.
func (r *HabitRepo) Create(ctx context.Context, h *model.Habit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, icon, color, target_time, reminder_enabled, is_active,
			is_deleted, streak, longest_streak, total_completions, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,FALSE,?,?,?,?,?)`,
		h.ID, h.UserID, h.Name, nullable(h.Icon), nullable(h.Color), nullable(h.TargetTime),
		h.ReminderEnabled, h.IsActive, h.Streak, h.LongestStreak, h.TotalCompletions, h.CreatedAt, h.UpdatedAt)
	return translate(err)
}

// Update applies the non-nil fields of upd.
func (r *HabitRepo) Update(ctx context.Context, id, userID string, upd model.HabitUpdate, now time.Time) error {
	sets := []string{"updated_at=?"}
	args := []any{now}
	str := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	flag := func(col string, v *bool) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	str("name", upd.Name)
	str("icon", upd.Icon)
	str("color", upd.Color)
	str("target_time", upd.TargetTime)
	flag("reminder_enabled", upd.ReminderEnabled)
	flag("is_active", upd.IsActive)
	args = append(args, id, userID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE habits SET "+strings.Join(sets, ", ")+" WHERE id=? AND user_id=? AND is_deleted=FALSE", args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SoftDelete flags a habit as deleted.
func (r *HabitRepo) SoftDelete(ctx context.Context, id, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE habits SET is_deleted=TRUE, updated_at=? WHERE id=? AND user_id=? AND is_deleted=FALSE",
		now, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CompletedBetween reports whether the habit has a completion in [from, to).
func (r *HabitRepo) CompletedBetween(ctx context.Context, habitID string, from, to time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM habit_completions WHERE habit_id=? AND completed_at>=? AND completed_at<?",
		habitID, from, to).Scan(&n)
	return n > 0, err
}

// AddCompletion inserts a completion row.
func (r *HabitRepo) AddCompletion(ctx context.Context, c *model.HabitCompletion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO habit_completions (id, habit_id, user_id, completed_at, notes, mood)
		 VALUES (?,?,?,?,?,?)`,
		c.ID, c.HabitID, c.UserID, c.CompletedAt, nullable(c.Notes), nullable(c.Mood))
	return translate(err)
}

// Completions returns up to limit completions of a habit, newest first.
// limit <= 0 returns all of them.
func (r *HabitRepo) Completions(ctx context.Context, habitID string, limit int) ([]model.HabitCompletion, error) {
	q := `SELECT id, habit_id, user_id, completed_at, notes, mood FROM habit_completions
		WHERE habit_id=? ORDER BY completed_at DESC`
	args := []any{habitID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HabitCompletion{}
	for rows.Next() {
		var (
			c           model.HabitCompletion
			notes, mood sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.CompletedAt, &notes, &mood); err != nil {
			return nil, err
		}
		c.CompletedAt = c.CompletedAt.UTC()
		c.Notes, c.Mood = strPtr(notes), strPtr(mood)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveStats stores the derived counters after a completion.
func (r *HabitRepo) SaveStats(ctx context.Context, h model.Habit, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE habits SET streak=?, longest_streak=?, total_completions=?, last_completed_at=?, updated_at=?
		 WHERE id=? AND user_id=? AND is_deleted=FALSE`,
		h.Streak, h.LongestStreak, h.TotalCompletions, nullable(h.LastCompletedAt), now, h.ID, h.UserID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
