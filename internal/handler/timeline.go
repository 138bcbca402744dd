package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/service"
)

// TimelineHandler serves /timeline.
type TimelineHandler struct {
	Timeline *service.TimelineService
}

func NewTimelineHandler(timeline *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{Timeline: timeline}
}

// Day returns the caller's events for ?date=YYYY-MM-DD, today by default.
func (h *TimelineHandler) Day(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var date time.Time
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		if date, err = time.Parse(service.DateLayout, raw); err != nil {
			fe := apperr.FieldErrors{}
			fe.Add("date", "must be a date (YYYY-MM-DD)")
			return apperr.Validation(fe)
		}
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	tl, err := h.Timeline.Day(ctx, uid, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tl)
}
