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

// GoalHandler serves /goals.
type GoalHandler struct {
	Goals *service.GoalService
}

func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{Goals: goals}
}

type goalCreateReq struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Target       float64  `json:"target"`
	Current      *float64 `json:"current"`
	Unit         string   `json:"unit"`
	Icon         *string  `json:"icon"`
	Color        *string  `json:"color"`
	Deadline     *string  `json:"deadline"`
	DeadlineDate *string  `json:"deadlineDate"`

	deadlineDate *time.Time
}

func (r *goalCreateReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	length(fe, "name", r.Name, 2, 200)
	oneOf(fe, "type", r.Type, model.GoalTypes)
	if r.Target <= 0 {
		fe.Add("target", "must be positive")
	}
	if r.Current != nil && *r.Current < 0 {
		fe.Add("current", "must not be negative")
	}
	length(fe, "unit", r.Unit, 1, 20)
	optLength(fe, "icon", r.Icon, 1, 50)
	optColor(fe, "color", r.Color)
	optLength(fe, "deadline", r.Deadline, 0, 50)
	r.deadlineDate = timestamp(fe, "deadlineDate", r.DeadlineDate)
	return fe
}

type goalUpdateReq struct {
	Name         *string  `json:"name"`
	Target       *float64 `json:"target"`
	Current      *float64 `json:"current"`
	Deadline     *string  `json:"deadline"`
	DeadlineDate *string  `json:"deadlineDate"`

	deadlineDate *time.Time
}

func (r *goalUpdateReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	optLength(fe, "name", r.Name, 2, 200)
	if r.Target != nil && *r.Target <= 0 {
		fe.Add("target", "must be positive")
	}
	if r.Current != nil && *r.Current < 0 {
		fe.Add("current", "must not be negative")
	}
	optLength(fe, "deadline", r.Deadline, 0, 50)
	r.deadlineDate = timestamp(fe, "deadlineDate", r.DeadlineDate)
	return fe
}

// List returns the caller's goals, optionally filtered by ?completed.
func (h *GoalHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	completed, err := queryBool(c, "completed", nil)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	gs, err := h.Goals.List(ctx, uid, completed)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orEmpty(gs))
}

func (h *GoalHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	g, err := h.Goals.Get(ctx, c.Param("id"), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GoalHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req goalCreateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	in := service.GoalInput{
		Name:         strings.TrimSpace(req.Name),
		Type:         req.Type,
		Target:       req.Target,
		Unit:         strings.TrimSpace(req.Unit),
		Icon:         req.Icon,
		Color:        req.Color,
		Deadline:     req.Deadline,
		DeadlineDate: req.deadlineDate,
	}
	if req.Current != nil {
		in.Current = *req.Current
	}
	g, err := h.Goals.Create(ctx, uid, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

// Update patches the goal. Reaching the target completes it.
func (h *GoalHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req goalUpdateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	g, err := h.Goals.Update(ctx, c.Param("id"), uid, model.GoalUpdate{
		Name:         trimmed(req.Name),
		Target:       req.Target,
		Current:      req.Current,
		Deadline:     req.Deadline,
		DeadlineDate: req.deadlineDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GoalHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	if err := h.Goals.Delete(ctx, c.Param("id"), uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
