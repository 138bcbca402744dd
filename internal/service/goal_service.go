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

// GoalInput is a validated create request.
type GoalInput struct {
	Name         string
	Type         string
	Target       float64
	Current      float64
	Unit         string
	Icon         *string
	Color        *string
	Deadline     *string
	DeadlineDate *time.Time
}

// GoalService manages goals. A goal whose current value reaches its
// target is completed automatically and logged on the timeline.
type GoalService struct {
	db    *sql.DB
	goals *repository.GoalRepo
	cache CacheInvalidator
	clock Clock
}

func NewGoalService(db *sql.DB, cache CacheInvalidator, clock Clock) *GoalService {
	return &GoalService{db: db, goals: repository.NewGoalRepo(db), cache: cache, clock: clock}
}

func (s *GoalService) List(ctx context.Context, userID string, completed *bool) ([]model.Goal, error) {
	gs, err := s.goals.List(ctx, userID, completed)
	if err != nil {
		return nil, apperr.Internal("list goals failed", err)
	}
	return gs, nil
}

func (s *GoalService) Get(ctx context.Context, id, userID string) (model.Goal, error) {
	g, err := s.goals.Get(ctx, id, userID)
	if err != nil {
		return model.Goal{}, notFound(err, "Goal not found", "load goal failed")
	}
	return g, nil
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (model.Goal, error) {
	now := s.clock.now()
	g := model.Goal{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         in.Name,
		Type:         in.Type,
		Target:       in.Target,
		Current:      in.Current,
		Unit:         in.Unit,
		Icon:         in.Icon,
		Color:        in.Color,
		Deadline:     in.Deadline,
		DeadlineDate: in.DeadlineDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.goals.Create(ctx, &g); err != nil {
		return model.Goal{}, apperr.Internal("create goal failed", err)
	}
	invalidate(ctx, s.cache, userID)
	return g.WithProgress(), nil
}

// Update applies upd. When the goal reaches its target for the first time
// it is marked completed and a GOAL timeline event is written in the same
// transaction.
func (s *GoalService) Update(ctx context.Context, id, userID string, upd model.GoalUpdate) (model.Goal, error) {
	now := s.clock.now()
	var out model.Goal
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		goals := repository.NewGoalRepo(tx)
		if err := goals.Update(ctx, id, userID, upd, now); err != nil {
			return notFound(err, "Goal not found", "update goal failed")
		}
		g, err := goals.Get(ctx, id, userID)
		if err != nil {
			return err
		}
		if !g.IsCompleted && g.Current >= g.Target {
			completed, err := goals.MarkCompleted(ctx, id, userID, now)
			if err != nil {
				return err
			}
			if completed {
				ev := model.TimelineEvent{
					ID:        uuid.NewString(),
					UserID:    userID,
					EventType: model.EventGoal,
					EventName: "Completed: " + g.Name,
					StartTime: now,
					Metadata: metadata(map[string]float64{
						"progress": 100, "target": g.Target, "current": g.Current,
					}),
					RelatedGoalID: &g.ID,
					CreatedAt:     now,
				}
				if err := repository.NewTimelineRepo(tx).Insert(ctx, &ev); err != nil {
					return err
				}
				g.IsCompleted, g.CompletedAt, g.UpdatedAt = true, &now, now
			}
		}
		out = g.WithProgress()
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return model.Goal{}, err
		}
		return model.Goal{}, apperr.Internal("update goal failed", err)
	}
	invalidate(ctx, s.cache, userID)
	return out, nil
}

func (s *GoalService) Delete(ctx context.Context, id, userID string) error {
	if err := s.goals.SoftDelete(ctx, id, userID, s.clock.now()); err != nil {
		return notFound(err, "Goal not found", "delete goal failed")
	}
	invalidate(ctx, s.cache, userID)
	return nil
}
