package service

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/repository"
)

const (
	topExpenses = 5
	// trendThreshold is the relative change against the previous period
	// below which spending counts as stable.
	trendThreshold = 0.10
)

// Summary periods.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
	Period30d   = "30d"
)

// ExpenseInput is a validated create request. A nil Date means now.
type ExpenseInput struct {
	Amount      float64
	Category    string
	Description *string
	Date        *time.Time
	Impact      *string
	Tags        []string
}

// ExpenseList is one page of expenses with the total count and the
// aggregate over every matching row.
type ExpenseList struct {
	Expenses []model.Expense      `json:"expenses"`
	Total    int                  `json:"total"`
	Summary  model.ExpenseSummary `json:"summary"`
}

// ExpenseService manages expenses and their analytics.
type ExpenseService struct {
	db       *sql.DB
	expenses *repository.ExpenseRepo
	cache    CacheInvalidator
	clock    Clock
}

func NewExpenseService(db *sql.DB, cache CacheInvalidator, clock Clock) *ExpenseService {
	return &ExpenseService{db: db, expenses: repository.NewExpenseRepo(db), cache: cache, clock: clock}
}

// List returns the page selected by f together with the total number of
// matches and their per-category sums.
func (s *ExpenseService) List(ctx context.Context, userID string, f model.ExpenseFilter) (ExpenseList, error) {
	es, err := s.expenses.List(ctx, userID, f)
	if err != nil {
		return ExpenseList{}, apperr.Internal("list expenses failed", err)
	}
	total, err := s.expenses.Count(ctx, userID, f)
	if err != nil {
		return ExpenseList{}, apperr.Internal("list expenses failed", err)
	}
	sums, err := s.expenses.SumByCategory(ctx, userID, f)
	if err != nil {
		return ExpenseList{}, apperr.Internal("list expenses failed", err)
	}
	sum := model.ExpenseSummary{ByCategory: map[string]float64{}}
	for _, c := range sums {
		sum.TotalAmount += c.Amount
		sum.ByCategory[c.Category] = round2(c.Amount)
	}
	sum.TotalAmount = round2(sum.TotalAmount)
	return ExpenseList{Expenses: es, Total: total, Summary: sum}, nil
}

// periodRange returns the window a summary period covers, ending at now.
// Unknown or empty periods cover the last 30 days.
func periodRange(period string, now time.Time) (string, time.Time) {
	switch period {
	case PeriodToday:
		return period, utcDay(now)
	case PeriodWeek:
		return period, now.AddDate(0, 0, -7)
	case PeriodMonth:
		return period, now.AddDate(0, -1, 0)
	case PeriodYear:
		return period, now.AddDate(-1, 0, 0)
	default:
		return Period30d, now.AddDate(0, 0, -30)
	}
}

// Summary aggregates the expenses of a period: totals, a per-category
// breakdown over every known category, the five largest expenses and the
// trend against the preceding window of equal length.
func (s *ExpenseService) Summary(ctx context.Context, userID, period string) (model.PeriodSummary, error) {
	now := s.clock.now()
	label, from := periodRange(period, now)
	f := model.ExpenseFilter{From: &from, To: &now}

	sums, err := s.expenses.SumByCategory(ctx, userID, f)
	if err != nil {
		return model.PeriodSummary{}, apperr.Internal("expense summary failed", err)
	}
	top, err := s.expenses.Top(ctx, userID, f, topExpenses)
	if err != nil {
		return model.PeriodSummary{}, apperr.Internal("expense summary failed", err)
	}
	prevFrom := from.Add(-now.Sub(from))
	prevTo := from.Add(-time.Second)
	prev, err := s.expenses.SumByCategory(ctx, userID, model.ExpenseFilter{From: &prevFrom, To: &prevTo})
	if err != nil {
		return model.PeriodSummary{}, apperr.Internal("expense summary failed", err)
	}

	byCategory := make(map[string]model.CategoryBreakdown, len(model.ExpenseCategories))
	for _, c := range model.ExpenseCategories {
		byCategory[c] = model.CategoryBreakdown{}
	}
	var total float64
	for _, c := range sums {
		total += c.Amount
	}
	for _, c := range sums {
		b := model.CategoryBreakdown{Amount: round2(c.Amount), Count: c.Count}
		if total > 0 {
			b.Percentage = round2(c.Amount / total * 100)
		}
		byCategory[c.Category] = b
	}

	out := model.PeriodSummary{
		Period:      label,
		TotalSpent:  round2(total),
		ByCategory:  byCategory,
		TopExpenses: make([]model.TopExpense, 0, len(top)),
		Trend:       trend(total, totalOf(prev)),
	}
	if days := math.Ceil(now.Sub(from).Hours() / 24); days > 0 {
		out.AverageDaily = round2(total / days)
	}
	for _, e := range top {
		out.TopExpenses = append(out.TopExpenses, model.TopExpense{
			ID: e.ID, Amount: e.Amount, Category: e.Category, Date: e.Date,
		})
	}
	return out, nil
}

func (s *ExpenseService) Get(ctx context.Context, id, userID string) (model.Expense, error) {
	e, err := s.expenses.Get(ctx, id, userID)
	if err != nil {
		return model.Expense{}, notFound(err, "Expense not found", "load expense failed")
	}
	return e, nil
}

// Create stores the expense and an EXPENSE timeline event at the time the
// money was spent.
func (s *ExpenseService) Create(ctx context.Context, userID string, in ExpenseInput) (model.Expense, error) {
	now := s.clock.now()
	e := model.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        now,
		Impact:      in.Impact,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Date != nil {
		e.Date = in.Date.UTC().Truncate(time.Second)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}

	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewExpenseRepo(tx).Create(ctx, &e); err != nil {
			return err
		}
		ev := model.TimelineEvent{
			ID:        uuid.NewString(),
			UserID:    userID,
			EventType: model.EventExpense,
			EventName: e.Category + ": " + strconv.FormatFloat(e.Amount, 'f', 2, 64),
			StartTime: e.Date,
			Metadata: metadata(map[string]any{
				"amount": e.Amount, "category": e.Category, "description": e.Description,
			}),
			RelatedExpenseID: &e.ID,
			CreatedAt:        now,
		}
		return repository.NewTimelineRepo(tx).Insert(ctx, &ev)
	})
	if err != nil {
		return model.Expense{}, apperr.Internal("create expense failed", err)
	}
	invalidate(ctx, s.cache, userID)
	return e, nil
}

func (s *ExpenseService) Update(ctx context.Context, id, userID string, upd model.ExpenseUpdate) (model.Expense, error) {
	if err := s.expenses.Update(ctx, id, userID, upd, s.clock.now()); err != nil {
		return model.Expense{}, notFound(err, "Expense not found", "update expense failed")
	}
	invalidate(ctx, s.cache, userID)
	return s.Get(ctx, id, userID)
}

func (s *ExpenseService) Delete(ctx context.Context, id, userID string) error {
	if err := s.expenses.SoftDelete(ctx, id, userID, s.clock.now()); err != nil {
		return notFound(err, "Expense not found", "delete expense failed")
	}
	invalidate(ctx, s.cache, userID)
	return nil
}

func totalOf(sums []repository.CategoryTotal) float64 {
	var t float64
	for _, c := range sums {
		t += c.Amount
	}
	return t
}

// trend compares spending with the previous window.
func trend(current, previous float64) string {
	if previous <= 0 {
		if current > 0 {
			return "increasing"
		}
		return "stable"
	}
	switch change := (current - previous) / previous; {
	case change > trendThreshold:
		return "increasing"
	case change < -trendThreshold:
		return "decreasing"
	default:
		return "stable"
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
