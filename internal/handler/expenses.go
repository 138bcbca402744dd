package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/service"
)

const (
	defaultExpensePage = 50
	maxExpensePage     = 100
	maxExpenseAmount   = 1_000_000
	maxExpenseTags     = 10
)

// ExpenseHandler serves /expenses.
type ExpenseHandler struct {
	Expenses *service.ExpenseService
}

func NewExpenseHandler(expenses *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{Expenses: expenses}
}

type expenseCreateReq struct {
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
	Impact      *string  `json:"impact"`
	Tags        []string `json:"tags"`

	date *time.Time
}

func (r *expenseCreateReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	checkAmount(fe, r.Amount)
	oneOf(fe, "category", r.Category, model.ExpenseCategories)
	optLength(fe, "description", r.Description, 0, 200)
	r.date = timestamp(fe, "date", r.Date)
	if r.Impact != nil {
		oneOf(fe, "impact", *r.Impact, model.ExpenseImpacts)
	}
	if len(r.Tags) > maxExpenseTags {
		fe.Add("tags", "must have at most 10 entries")
	}
	return fe
}

type expenseUpdateReq struct {
	Amount      *float64 `json:"amount"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
	Impact      *string  `json:"impact"`
	Tags        []string `json:"tags"`

	date *time.Time
}

func (r *expenseUpdateReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	if r.Amount != nil {
		checkAmount(fe, *r.Amount)
	}
	if r.Category != nil {
		oneOf(fe, "category", *r.Category, model.ExpenseCategories)
	}
	optLength(fe, "description", r.Description, 0, 200)
	r.date = timestamp(fe, "date", r.Date)
	if r.Impact != nil {
		oneOf(fe, "impact", *r.Impact, model.ExpenseImpacts)
	}
	if len(r.Tags) > maxExpenseTags {
		fe.Add("tags", "must have at most 10 entries")
	}
	return fe
}

func checkAmount(fe apperr.FieldErrors, v float64) {
	if v <= 0 {
		fe.Add("amount", "must be positive")
	} else if v > maxExpenseAmount {
		fe.Add("amount", "must be at most 1000000")
	}
}

// List returns one page of expenses with the total count and per-category
// sums over every match.
func (h *ExpenseHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	f, err := expenseFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	res, err := h.Expenses.List(ctx, uid, f)
	if err != nil {
		return err
	}
	res.Expenses = orEmpty(res.Expenses)
	return c.JSON(http.StatusOK, res)
}

// expenseFilter reads the listing query. A bare date as endDate covers the
// whole day.
func expenseFilter(c echo.Context) (model.ExpenseFilter, error) {
	fe := apperr.FieldErrors{}
	f := model.ExpenseFilter{Category: strings.TrimSpace(c.QueryParam("category"))}
	if f.Category != "" {
		oneOf(fe, "category", f.Category, model.ExpenseCategories)
	}
	if t, _, ok := queryTime(fe, c, "startDate"); ok {
		f.From = &t
	}
	if t, dateOnly, ok := queryTime(fe, c, "endDate"); ok {
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		f.To = &t
	}
	if !fe.Empty() {
		return f, apperr.Validation(fe)
	}
	var err error
	if f.Limit, err = queryInt(c, "limit", defaultExpensePage, maxExpensePage); err != nil {
		return f, err
	}
	if f.Limit == 0 {
		f.Limit = defaultExpensePage
	}
	if f.Offset, err = queryInt(c, "offset", 0, 0); err != nil {
		return f, err
	}
	return f, nil
}

// queryTime parses a YYYY-MM-DD or RFC 3339 query parameter.
func queryTime(fe apperr.FieldErrors, c echo.Context, name string) (t time.Time, dateOnly, ok bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, false, false
	}
	if t, err := time.Parse(service.DateLayout, raw); err == nil {
		return t, true, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fe.Add(name, "must be a date (YYYY-MM-DD) or ISO 8601 date-time")
		return time.Time{}, false, false
	}
	return t.UTC(), false, true
}

// Summary aggregates the caller's spending over ?period (today, week,
// month, year; anything else covers 30 days).
func (h *ExpenseHandler) Summary(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	s, err := h.Expenses.Summary(ctx, uid, strings.ToLower(strings.TrimSpace(c.QueryParam("period"))))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *ExpenseHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	e, err := h.Expenses.Get(ctx, c.Param("id"), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *ExpenseHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req expenseCreateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	e, err := h.Expenses.Create(ctx, uid, service.ExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.date,
		Impact:      req.Impact,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *ExpenseHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req expenseUpdateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	e, err := h.Expenses.Update(ctx, c.Param("id"), uid, model.ExpenseUpdate{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.date,
		Impact:      req.Impact,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *ExpenseHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	if err := h.Expenses.Delete(ctx, c.Param("id"), uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
