package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/repository"
)

const (
	habitDetailCompletions  = 10
	defaultCompletionsLimit = 30
	habitEventMinutes       = 30
)

// HabitInput is a validated create request.
type HabitInput struct {
	Name            string
	Icon            *string
	Color           *string
	TargetTime      *string
	ReminderEnabled bool
}

// CompletionResult is returned by Complete.
type CompletionResult struct {
	Habit      model.Habit           `json:"habit"`
	Completion model.HabitCompletion `json:"completion"`
}

// HabitService manages habits and their daily completions.
type HabitService struct {
	db     *sql.DB
	habits *repository.HabitRepo
	cache  CacheInvalidator
	clock  Clock
}

func NewHabitService(db *sql.DB, cache CacheInvalidator, clock Clock) *HabitService {
	return &HabitService{db: db, habits: repository.NewHabitRepo(db), cache: cache, clock: clock}
}

func (s *HabitService) List(ctx context.Context, userID string, active *bool) ([]model.Habit, error) {
	hs, err := s.habits.List(ctx, userID, active)
	if err != nil {
		return nil, apperr.Internal("list habits failed", err)
	}
	return hs, nil
}

// Get returns one habit with its most recent completions.
func (s *HabitService) Get(ctx context.Context, id, userID string) (model.Habit, error) {
	h, err := s.habits.Get(ctx, id, userID)
	if err != nil {
		return model.Habit{}, notFound(err, "Habit not found", "load habit failed")
	}
	if h.Completions, err = s.habits.Completions(ctx, id, habitDetailCompletions); err != nil {
		return model.Habit{}, apperr.Internal("load habit failed", err)
	}
	return h, nil
}

func (s *HabitService) Create(ctx context.Context, userID string, in HabitInput) (model.Habit, error) {
	now := s.clock.now()
	h := model.Habit{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            in.Name,
		Icon:            in.Icon,
		Color:           in.Color,
		TargetTime:      in.TargetTime,
		ReminderEnabled: in.ReminderEnabled,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.habits.Create(ctx, &h); err != nil {
		return model.Habit{}, apperr.Internal("create habit failed", err)
	}
	invalidate(ctx, s.cache, userID)
	return h, nil
}

func (s *HabitService) Update(ctx context.Context, id, userID string, upd model.HabitUpdate) (model.Habit, error) {
	if err := s.habits.Update(ctx, id, userID, upd, s.clock.now()); err != nil {
		return model.Habit{}, notFound(err, "Habit not found", "update habit failed")
	}
	invalidate(ctx, s.cache, userID)
	h, err := s.habits.Get(ctx, id, userID)
	if err != nil {
		return model.Habit{}, notFound(err, "Habit not found", "update habit failed")
	}
	return h, nil
}

func (s *HabitService) Delete(ctx context.Context, id, userID string) error {
	if err := s.habits.SoftDelete(ctx, id, userID, s.clock.now()); err != nil {
		return notFound(err, "Habit not found", "delete habit failed")
	}
	invalidate(ctx, s.cache, userID)
	return nil
}

// Complete records today's completion of a habit, recomputes its streak
// counters and writes a HABIT timeline event. A habit can be completed
// once per UTC day.
func (s *HabitService) Complete(ctx context.Context, id, userID string, notes, mood *string) (CompletionResult, error) {
	now := s.clock.now()
	day := utcDay(now)
	var res CompletionResult

	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		habits := repository.NewHabitRepo(tx)
		h, err := habits.Get(ctx, id, userID)
		if err != nil {
			return notFound(err, "Habit not found", "complete habit failed")
		}
		done, err := habits.CompletedBetween(ctx, id, day, day.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if done {
			return apperr.BadRequest("Habit already completed today")
		}

		c := model.HabitCompletion{
			ID:          uuid.NewString(),
			HabitID:     id,
			UserID:      userID,
			CompletedAt: now,
			Notes:       notes,
			Mood:        mood,
		}
		if err := habits.AddCompletion(ctx, &c); err != nil {
			return err
		}
		all, err := habits.Completions(ctx, id, 0)
		if err != nil {
			return err
		}

		h.Streak = streak(all, now)
		h.LongestStreak = max(h.LongestStreak, h.Streak)
		h.TotalCompletions++
		h.LastCompletedAt = &now
		h.UpdatedAt = now
		if err := habits.SaveStats(ctx, h, now); err != nil {
			return err
		}

		duration := habitEventMinutes
		ev := model.TimelineEvent{
			ID:             uuid.NewString(),
			UserID:         userID,
			EventType:      model.EventHabit,
			EventName:      h.Name,
			StartTime:      now,
			Duration:       &duration,
			Metadata:       metadata(map[string]*string{"mood": mood, "notes": notes}),
			RelatedHabitID: &h.ID,
			CreatedAt:      now,
		}
		if err := repository.NewTimelineRepo(tx).Insert(ctx, &ev); err != nil {
			return err
		}
		res = CompletionResult{Habit: h, Completion: c}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return CompletionResult{}, err
		}
		return CompletionResult{}, apperr.Internal("complete habit failed", err)
	}
	invalidate(ctx, s.cache, userID)
	return res, nil
}

// Completions returns up to limit completions, newest first. A
// non-positive limit uses the default of 30.
func (s *HabitService) Completions(ctx context.Context, id, userID string, limit int) ([]model.HabitCompletion, error) {
	if _, err := s.habits.Get(ctx, id, userID); err != nil {
		return nil, notFound(err, "Habit not found", "list completions failed")
	}
	if limit <= 0 {
		limit = defaultCompletionsLimit
	}
	cs, err := s.habits.Completions(ctx, id, limit)
	if err != nil {
		return nil, apperr.Internal("list completions failed", err)
	}
	return cs, nil
}

// streak counts consecutive days with a completion, walking backward from
// the day of now. completions must be ordered newest first.
func streak(completions []model.HabitCompletion, now time.Time) int {
	n := 0
	cursor := utcDay(now)
	for _, c := range completions {
		d := utcDay(c.CompletedAt)
		gap := int(cursor.Sub(d) / (24 * time.Hour))
		if gap > 1 || gap < 0 {
			break
		}
		n++
		cursor = d
	}
	return n
}
