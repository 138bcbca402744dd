package model

import "time"

// Expense is a single spending record (`expenses`).
type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	Impact      *string   `json:"impact"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ExpenseUpdate carries the mutable expense fields; nil means unchanged.
type ExpenseUpdate struct {
	Amount      *float64
	Category    *string
	Description *string
	Date        *time.Time
	Impact      *string
	Tags        []string
}

// ExpenseFilter narrows an expense listing. Zero values mean no filter.
type ExpenseFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Limit    int
	Offset   int
}

// Expense categories and impact values accepted by the API.
var (
	ExpenseCategories = []string{"food", "transport", "shopping", "entertainment", "coffee", "other"}
	ExpenseImpacts    = []string{"positive", "neutral", "negative"}
)

// ExpenseSummary aggregates the expenses matched by a listing filter.
type ExpenseSummary struct {
	TotalAmount float64            `json:"totalAmount"`
	ByCategory  map[string]float64 `json:"byCategory"`
}

// CategoryBreakdown is one row of a period summary.
type CategoryBreakdown struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// TopExpense is the compact view used in a period summary.
type TopExpense struct {
	ID       string    `json:"id"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
}

// PeriodSummary is the analytics view served by GET /expenses/summary.
type PeriodSummary struct {
	Period       string                       `json:"period"`
	TotalSpent   float64                      `json:"totalSpent"`
	AverageDaily float64                      `json:"averageDaily"`
	ByCategory   map[string]CategoryBreakdown `json:"byCategory"`
	TopExpenses  []TopExpense                 `json:"topExpenses"`
	Trend        string                       `json:"trend"`
}
