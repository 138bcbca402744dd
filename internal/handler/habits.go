package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/service"
)

const (
	defaultCompletions = 30
	maxCompletions     = 365
)

// HabitHandler serves /habits.
type HabitHandler struct {
	Habits *service.HabitService
}

func NewHabitHandler(habits *service.HabitService) *HabitHandler {
	return &HabitHandler{Habits: habits}
}

// ----- DTOs -----

type habitCreateReq struct {
	Name            string  `json:"name"`
	Icon            *string `json:"icon"`
	Color           *string `json:"color"`
	TargetTime      *string `json:"targetTime"`
	ReminderEnabled bool    `json:"reminderEnabled"`
}

func (r *habitCreateReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	length(fe, "name", r.Name, 2, 100)
	optLength(fe, "icon", r.Icon, 1, 50)
	optColor(fe, "color", r.Color)
	optClock(fe, "targetTime", r.TargetTime)
	return fe
}

type habitUpdateReq struct {
	Name            *string `json:"name"`
	Icon            *string `json:"icon"`
	Color           *string `json:"color"`
	TargetTime      *string `json:"targetTime"`
	ReminderEnabled *bool   `json:"reminderEnabled"`
	IsActive        *bool   `json:"isActive"`
}

func (r *habitUpdateReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	optLength(fe, "name", r.Name, 2, 100)
	optLength(fe, "icon", r.Icon, 1, 50)
	optColor(fe, "color", r.Color)
	optClock(fe, "targetTime", r.TargetTime)
	return fe
}

type completeReq struct {
	Notes *string `json:"notes"`
	Mood  *string `json:"mood"`
}

func (r *completeReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	optLength(fe, "notes", r.Notes, 0, 500)
	if r.Mood != nil {
		oneOf(fe, "mood", *r.Mood, model.HabitMoods)
	}
	return fe
}

// ----- handlers -----

// List returns the caller's habits; ?active defaults to true.
func (h *HabitHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	active, err := queryBool(c, "active", ptrTo(true))
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	hs, err := h.Habits.List(ctx, uid, active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orEmpty(hs))
}

func (h *HabitHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	hb, err := h.Habits.Get(ctx, c.Param("id"), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hb)
}

func (h *HabitHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req habitCreateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	hb, err := h.Habits.Create(ctx, uid, service.HabitInput{
		Name:            strings.TrimSpace(req.Name),
		Icon:            req.Icon,
		Color:           req.Color,
		TargetTime:      req.TargetTime,
		ReminderEnabled: req.ReminderEnabled,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, hb)
}

func (h *HabitHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req habitUpdateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	hb, err := h.Habits.Update(ctx, c.Param("id"), uid, model.HabitUpdate{
		Name:            trimmed(req.Name),
		Icon:            req.Icon,
		Color:           req.Color,
		TargetTime:      req.TargetTime,
		ReminderEnabled: req.ReminderEnabled,
		IsActive:        req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hb)
}

func (h *HabitHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	if err := h.Habits.Delete(ctx, c.Param("id"), uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Complete checks the habit off for today. The body is optional.
func (h *HabitHandler) Complete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req completeReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	res, err := h.Habits.Complete(ctx, c.Param("id"), uid, req.Notes, req.Mood)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *HabitHandler) Completions(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultCompletions, maxCompletions)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	cs, err := h.Habits.Completions(ctx, c.Param("id"), uid, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orEmpty(cs))
}

func ptrTo[T any](v T) *T { return &v }

// orEmpty keeps empty lists rendering as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
