package service

import (
	"context"
	"time"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/repository"
)

// DateLayout is the format of timeline dates.
const DateLayout = "2006-01-02"

type eventStyle struct{ color, icon string }

var (
	eventStyles = map[string]eventStyle{
		model.EventHabit:   {"#10B981", "zap"},
		model.EventExpense: {"#F59E0B", "dollar-sign"},
		model.EventGoal:    {"#8B5CF6", "target"},
		model.EventCustom:  {"#6B7280", "circle"},
	}
	defaultStyle = eventStyles[model.EventCustom]
)

// TimelineService renders a user's day of events.
type TimelineService struct {
	timeline *repository.TimelineRepo
	clock    Clock
}

func NewTimelineService(timeline *repository.TimelineRepo, clock Clock) *TimelineService {
	return &TimelineService{timeline: timeline, clock: clock}
}

// Day returns the events of the UTC day containing date, oldest first. A
// zero date means today.
func (s *TimelineService) Day(ctx context.Context, userID string, date time.Time) (model.Timeline, error) {
	if date.IsZero() {
		date = s.clock.now()
	}
	from := utcDay(date)
	rows, err := s.timeline.Between(ctx, userID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return model.Timeline{}, apperr.Internal("load timeline failed", err)
	}

	out := model.Timeline{Date: from.Format(DateLayout), Events: make([]model.TimelineItem, 0, len(rows))}
	for _, r := range rows {
		style, ok := eventStyles[r.EventType]
		if !ok {
			style = defaultStyle
		}
		out.Events = append(out.Events, model.TimelineItem{
			ID:       r.ID,
			Time:     r.StartTime.UTC().Format("15:04"),
			Event:    r.EventName,
			Type:     r.EventType,
			Duration: r.Duration,
			Color:    firstSet(style.color, r.HabitColor, r.GoalColor),
			Icon:     firstSet(style.icon, r.HabitIcon, r.GoalIcon),
			Metadata: r.Metadata,
		})
	}
	return out, nil
}

// firstSet returns the first non-empty value, or fallback.
func firstSet(fallback string, vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return fallback
}
