package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/nexura/internal/model"
)

// GoalRepo provides ownership-scoped access to goals.
type GoalRepo struct{ db DBTX }

func NewGoalRepo(db DBTX) *GoalRepo { return &GoalRepo{db: db} }

const goalColumns = `id, user_id, name, type, target, current_value, unit, icon, color, deadline,
	deadline_date, is_completed, completed_at, created_at, updated_at`

func scanGoal(s rowScanner) (model.Goal, error) {
	var (
		g                       model.Goal
		icon, color, deadline   sql.NullString
		deadlineDate, completed sql.NullTime
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Type, &g.Target, &g.Current, &g.Unit, &icon, &color,
		&deadline, &deadlineDate, &g.IsCompleted, &completed, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return model.Goal{}, translate(err)
	}
	g.Icon, g.Color, g.Deadline = strPtr(icon), strPtr(color), strPtr(deadline)
	g.DeadlineDate, g.CompletedAt = timePtr(deadlineDate), timePtr(completed)
	g.CreatedAt, g.UpdatedAt = g.CreatedAt.UTC(), g.UpdatedAt.UTC()
	return g.WithProgress(), nil
}

// List returns the user's goals, newest first. completed filters on
// is_completed when non-nil.
func (r *GoalRepo) List(ctx context.Context, userID string, completed *bool) ([]model.Goal, error) {
	q := "SELECT " + goalColumns + " FROM goals WHERE user_id=? AND is_deleted=FALSE"
	args := []any{userID}
	if completed != nil {
		q += " AND is_completed=?"
		args = append(args, *completed)
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Get returns one goal owned by userID.
func (r *GoalRepo) Get(ctx context.Context, id, userID string) (model.Goal, error) {
	return scanGoal(r.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE id=? AND user_id=? AND is_deleted=FALSE", id, userID))
}

// Create inserts g.
func (r *GoalRepo) Create(ctx context.Context, g *model.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, name, type, target, current_value, unit, icon, color, deadline,
			deadline_date, is_completed, completed_at, is_deleted, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,FALSE,?,?)`,
		g.ID, g.UserID, g.Name, g.Type, g.Target, g.Current, g.Unit, nullable(g.Icon), nullable(g.Color),
		nullable(g.Deadline), nullable(g.DeadlineDate), g.IsCompleted, nullable(g.CompletedAt),
		g.CreatedAt, g.UpdatedAt)
	return translate(err)
}

// Update applies the non-nil fields of upd.
func (r *GoalRepo) Update(ctx context.Context, id, userID string, upd model.GoalUpdate, now time.Time) error {
	sets := []string{"updated_at=?"}
	args := []any{now}
	if upd.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.Target != nil {
		sets = append(sets, "target=?")
		args = append(args, *upd.Target)
	}
	if upd.Current != nil {
		sets = append(sets, "current_value=?")
		args = append(args, *upd.Current)
	}
	if upd.Deadline != nil {
		sets = append(sets, "deadline=?")
		args = append(args, *upd.Deadline)
	}
	if upd.DeadlineDate != nil {
		sets = append(sets, "deadline_date=?")
		args = append(args, *upd.DeadlineDate)
	}
	args = append(args, id, userID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET "+strings.Join(sets, ", ")+" WHERE id=? AND user_id=? AND is_deleted=FALSE", args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// MarkCompleted flags a goal as reached at the given time. It reports
// false when the goal was already complete.
func (r *GoalRepo) MarkCompleted(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET is_completed=TRUE, completed_at=?, updated_at=?
		 WHERE id=? AND user_id=? AND is_deleted=FALSE AND is_completed=FALSE`,
		at, at, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SoftDelete flags a goal as deleted.
func (r *GoalRepo) SoftDelete(ctx context.Context, id, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET is_deleted=TRUE, updated_at=? WHERE id=? AND user_id=? AND is_deleted=FALSE",
		now, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
