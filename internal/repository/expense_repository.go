package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/nexura/internal/model"
)

// ExpenseRepo provides ownership-scoped access to expenses.
type ExpenseRepo struct{ db DBTX }

func NewExpenseRepo(db DBTX) *ExpenseRepo { return &ExpenseRepo{db: db} }

const expenseColumns = `id, user_id, amount, category, description, spent_at, impact, tags, created_at, updated_at`

func scanExpense(s rowScanner) (model.Expense, error) {
	var (
		e                   model.Expense
		description, impact sql.NullString
		tags                string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &description, &e.Date, &impact, &tags,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return model.Expense{}, translate(err)
	}
	var err error
	if e.Tags, err = decodeList(tags); err != nil {
		return model.Expense{}, err
	}
	e.Description, e.Impact = strPtr(description), strPtr(impact)
	e.Date, e.CreatedAt, e.UpdatedAt = e.Date.UTC(), e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	return e, nil
}

// where builds the shared filter clause of List, Count and SumByCategory.
func (f expenseFilter) where() (string, []any) {
	clauses := []string{"user_id=?", "is_deleted=FALSE"}
	args := []any{f.userID}
	if f.From != nil {
		clauses = append(clauses, "spent_at>=?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		clauses = append(clauses, "spent_at<=?")
		args = append(args, *f.To)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type expenseFilter struct {
	model.ExpenseFilter
	userID string
}

// List returns one page of matching expenses, most recent first.
func (r *ExpenseRepo) List(ctx context.Context, userID string, f model.ExpenseFilter) ([]model.Expense, error) {
	where, args := expenseFilter{f, userID}.where()
	q := "SELECT " + expenseColumns + " FROM expenses" + where + " ORDER BY spent_at DESC, created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns how many expenses match f, ignoring paging.
func (r *ExpenseRepo) Count(ctx context.Context, userID string, f model.ExpenseFilter) (int, error) {
	where, args := expenseFilter{f, userID}.where()
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&n)
	return n, err
}

// CategoryTotal is the aggregate of one category.
type CategoryTotal struct {
	Category string
	Amount   float64
	Count    int
}

// SumByCategory aggregates matching expenses per category, ignoring paging.
func (r *ExpenseRepo) SumByCategory(ctx context.Context, userID string, f model.ExpenseFilter) ([]CategoryTotal, error) {
	where, args := expenseFilter{f, userID}.where()
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, COALESCE(SUM(amount), 0), COUNT(*) FROM expenses"+where+
			" GROUP BY category ORDER BY category", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryTotal
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Amount, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Top returns the n largest matching expenses.
func (r *ExpenseRepo) Top(ctx context.Context, userID string, f model.ExpenseFilter, n int) ([]model.Expense, error) {
	where, args := expenseFilter{f, userID}.where()
	args = append(args, n)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses"+where+" ORDER BY amount DESC, spent_at DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one expense owned by userID.
func (r *ExpenseRepo) Get(ctx context.Context, id, userID string) (model.Expense, error) {
	return scanExpense(r.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id=? AND user_id=? AND is_deleted=FALSE", id, userID))
}

// Create inserts e.
func (r *ExpenseRepo) Create(ctx context.Context, e *model.Expense) error {
	tags, err := encodeList(e.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, amount, category, description, spent_at, impact, tags,
			is_deleted, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,FALSE,?,?)`,
		e.ID, e.UserID, e.Amount, e.Category, nullable(e.Description), e.Date, nullable(e.Impact), tags,
		e.CreatedAt, e.UpdatedAt)
	return translate(err)
}

// Update applies the non-nil fields of upd. A nil Tags slice leaves the
// tags untouched.
func (r *ExpenseRepo) Update(ctx context.Context, id, userID string, upd model.ExpenseUpdate, now time.Time) error {
	sets := []string{"updated_at=?"}
	args := []any{now}
	if upd.Amount != nil {
		sets = append(sets, "amount=?")
		args = append(args, *upd.Amount)
	}
	if upd.Category != nil {
		sets = append(sets, "category=?")
		args = append(args, *upd.Category)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Date != nil {
		sets = append(sets, "spent_at=?")
		args = append(args, *upd.Date)
	}
	if upd.Impact != nil {
		sets = append(sets, "impact=?")
		args = append(args, *upd.Impact)
	}
	if upd.Tags != nil {
		tags, err := encodeList(upd.Tags)
		if err != nil {
			return err
		}
		sets = append(sets, "tags=?")
		args = append(args, tags)
	}
	args = append(args, id, userID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET "+strings.Join(sets, ", ")+" WHERE id=? AND user_id=? AND is_deleted=FALSE", args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SoftDelete flags an expense as deleted.
func (r *ExpenseRepo) SoftDelete(ctx context.Context, id, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET is_deleted=TRUE, updated_at=? WHERE id=? AND user_id=? AND is_deleted=FALSE",
		now, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
