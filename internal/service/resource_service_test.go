package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/database/dbtest"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/repository"
	"github.com/iliyamo/nexura/internal/service"
	"github.com/iliyamo/nexura/internal/utils"
)

func ptr[T any](v T) *T { return &v }

type recordingCache struct {
	mu    sync.Mutex
	users []string
}

func (c *recordingCache) InvalidateUser(_ context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, uid)
	return nil
}

func (c *recordingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users)
}

type resourceFixture struct {
	db       *sql.DB
	clock    *fakeClock
	cache    *recordingCache
	userID   string
	otherID  string
	habits   *service.HabitService
	goals    *service.GoalService
	expenses *service.ExpenseService
	timeline *service.TimelineService
	users    *service.UserService
}

func newResourceFixture(t *testing.T) *resourceFixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := newClock()
	cache := &recordingCache{}
	issuer := utils.NewTokenIssuer("a", "r", time.Minute, time.Hour)
	issuer.Now = clock.Now
	auth := service.NewAuthService(db, issuer, bcrypt.MinCost, service.AuthOptions{Clock: clock.Now})

	ctx := context.Background()
	me, err := auth.Signup(ctx, signupInput("Casey Doe", "casey@example.com"), client)
	require.NoError(t, err)
	other, err := auth.Signup(ctx, signupInput("Robin Roe", "robin@example.com"), client)
	require.NoError(t, err)

	return &resourceFixture{
		db: db, clock: clock, cache: cache,
		userID: me.User.ID, otherID: other.User.ID,
		habits:   service.NewHabitService(db, cache, clock.Now),
		goals:    service.NewGoalService(db, cache, clock.Now),
		expenses: service.NewExpenseService(db, cache, clock.Now),
		timeline: service.NewTimelineService(repository.NewTimelineRepo(db), clock.Now),
		users:    service.NewUserService(repository.NewUserRepo(db), clock.Now),
	}
}

func TestHabitService_CompleteOncePerDayAndStreaks(t *testing.T) {
	f := newResourceFixture(t)
	ctx := context.Background()

	h, err := f.habits.Create(ctx, f.userID, service.HabitInput{Name: "Read", Icon: ptr("book")})
	require.NoError(t, err)
	assert.True(t, h.IsActive)
	assert.Equal(t, 1, f.cache.count())

	res, err := f.habits.Complete(ctx, h.ID, f.userID, ptr("ch. 3"), ptr("good"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Habit.Streak)
	assert.Equal(t, 1, res.Habit.TotalCompletions)
	assert.Equal(t, "good", *res.Completion.Mood)

	_, err = f.habits.Complete(ctx, h.ID, f.userID, nil, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "already completed today")

	f.clock.Advance(24 * time.Hour)
	res, err = f.habits.Complete(ctx, h.ID, f.userID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Habit.Streak)
	assert.Equal(t, 2, res.Habit.LongestStreak)

	// skip a day: the streak restarts, the record stays
	f.clock.Advance(48 * time.Hour)
	res, err = f.habits.Complete(ctx, h.ID, f.userID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Habit.Streak)
	assert.Equal(t, 2, res.Habit.LongestStreak)
	assert.Equal(t, 3, res.Habit.TotalCompletions)

	got, err := f.habits.Get(ctx, h.ID, f.userID)
	require.NoError(t, err)
	assert.Len(t, got.Completions, 3)
	assert.Equal(t, 1, got.Streak)

	cs, err := f.habits.Completions(ctx, h.ID, f.userID, 2)
	require.NoError(t, err)
	assert.Len(t, cs, 2)

	day, err := f.timeline.Day(ctx, f.userID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, day.Events, 1)
	ev := day.Events[0]
	assert.Equal(t, model.EventHabit, ev.Type)
	assert.Equal(t, "Read", ev.Event)
	assert.Equal(t, "book", ev.Icon)
	assert.Equal(t, "#10B981", ev.Color)
	assert.Equal(t, "09:30", ev.Time)
	require.NotNil(t, ev.Duration)
	assert.Equal(t, 30, *ev.Duration)
}

func TestHabitService_Ownership(t *testing.T) {
	f := newResourceFixture(t)
	ctx := context.Background()
	h, err := f.habits.Create(ctx, f.userID, service.HabitInput{Name: "Run"})
	require.NoError(t, err)

	_, err = f.habits.Get(ctx, h.ID, f.otherID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.habits.Complete(ctx, h.ID, f.otherID, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.habits.Update(ctx, h.ID, f.otherID, model.HabitUpdate{Name: ptr("Mine now")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.habits.Delete(ctx, h.ID, f.otherID), apperr.ErrNotFound)

	updated, err := f.habits.Update(ctx, h.ID, f.userID, model.HabitUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	active, err := f.habits.List(ctx, f.userID, ptr(true))
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, f.habits.Delete(ctx, h.ID, f.userID))
	all, err := f.habits.List(ctx, f.userID, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGoalService_AutoCompletes(t *testing.T) {
	f := newResourceFixture(t)
	ctx := context.Background()

	g, err := f.goals.Create(ctx, f.userID, service.GoalInput{Name: "Read 10 books", Type: "milestone", Target: 10, Current: 4, Unit: "books"})
	require.NoError(t, err)
	assert.InDelta(t, 40, g.Progress, 0.001)
	assert.False(t, g.IsCompleted)

	g, err = f.goals.Update(ctx, g.ID, f.userID, model.GoalUpdate{Current: ptr(9.0)})
	require.NoError(t, err)
	assert.False(t, g.IsCompleted)
	assert.InDelta(t, 90, g.Progress, 0.001)

	f.clock.Advance(time.Hour)
	g, err = f.goals.Update(ctx, g.ID, f.userID, model.GoalUpdate{Current: ptr(12.0)})
	require.NoError(t, err)
	assert.True(t, g.IsCompleted)
	require.NotNil(t, g.CompletedAt)
	assert.InDelta(t, 100, g.Progress, 0.001)

	// further updates keep it complete without a second event
	_, err = f.goals.Update(ctx, g.ID, f.userID, model.GoalUpdate{Current: ptr(13.0)})
	require.NoError(t, err)

	day, err := f.timeline.Day(ctx, f.userID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, day.Events, 1)
	assert.Equal(t, "Completed: Read 10 books", day.Events[0].Event)
	assert.Equal(t, "target", day.Events[0].Icon)
	assert.Equal(t, "#8B5CF6", day.Events[0].Color)
	assert.Equal(t, "10:30", day.Events[0].Time)

	done, err := f.goals.List(ctx, f.userID, ptr(true))
	require.NoError(t, err)
	assert.Len(t, done, 1)

	_, err = f.goals.Update(ctx, g.ID, f.otherID, model.GoalUpdate{Current: ptr(1.0)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, f.goals.Delete(ctx, g.ID, f.userID))
	_, err = f.goals.Get(ctx, g.ID, f.userID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExpenseService_ListAndSummary(t *testing.T) {
	f := newResourceFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	add := func(amount float64, cat string, at time.Time) model.Expense {
		e, err := f.expenses.Create(ctx, f.userID, service.ExpenseInput{Amount: amount, Category: cat, Date: &at})
		require.NoError(t, err)
		return e
	}
	add(20, "food", now.Add(-time.Hour))
	add(5, "coffee", now.Add(-2*time.Hour))
	big := add(75, "shopping", now.AddDate(0, 0, -3))
	add(40, "food", now.AddDate(0, 0, -45))
	_, err := f.expenses.Create(ctx, f.otherID, service.ExpenseInput{Amount: 1000, Category: "food"})
	require.NoError(t, err)

	list, err := f.expenses.List(ctx, f.userID, model.ExpenseFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, list.Total)
	assert.Len(t, list.Expenses, 2)
	assert.InDelta(t, 140, list.Summary.TotalAmount, 0.001)
	assert.InDelta(t, 60, list.Summary.ByCategory["food"], 0.001)

	sum, err := f.expenses.Summary(ctx, f.userID, "")
	require.NoError(t, err)
	assert.Equal(t, "30d", sum.Period)
	assert.InDelta(t, 100, sum.TotalSpent, 0.001)
	assert.InDelta(t, 3.33, sum.AverageDaily, 0.001)
	assert.Len(t, sum.ByCategory, len(model.ExpenseCategories))
	assert.InDelta(t, 75, sum.ByCategory["shopping"].Percentage, 0.001)
	assert.Equal(t, 1, sum.ByCategory["food"].Count)
	assert.Zero(t, sum.ByCategory["transport"].Amount)
	require.Len(t, sum.TopExpenses, 3)
	assert.Equal(t, big.ID, sum.TopExpenses[0].ID)
	assert.Equal(t, "increasing", sum.Trend)

	today, err := f.expenses.Summary(ctx, f.userID, "today")
	require.NoError(t, err)
	assert.InDelta(t, 25, today.TotalSpent, 0.001)

	day, err := f.timeline.Day(ctx, f.userID, now)
	require.NoError(t, err)
	require.Len(t, day.Events, 2)
	assert.Equal(t, "coffee: 5.00", day.Events[0].Event)
	assert.Equal(t, "dollar-sign", day.Events[0].Icon)
	assert.Equal(t, "#F59E0B", day.Events[1].Color)

	upd, err := f.expenses.Update(ctx, big.ID, f.userID, model.ExpenseUpdate{Tags: []string{"gift"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gift"}, upd.Tags)
	require.NoError(t, f.expenses.Delete(ctx, big.ID, f.userID))
	assert.ErrorIs(t, f.expenses.Delete(ctx, big.ID, f.userID), apperr.ErrNotFound)
}

func TestTimelineService_EmptyDay(t *testing.T) {
	f := newResourceFixture(t)
	day, err := f.timeline.Day(context.Background(), f.userID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", day.Date)
	assert.NotNil(t, day.Events)
	assert.Empty(t, day.Events)
}

func TestUserService_Profile(t *testing.T) {
	f := newResourceFixture(t)
	ctx := context.Background()

	p, err := f.users.Profile(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "CASEY-01", p.Handle)
	require.NotNil(t, p.Settings)
	assert.Equal(t, "NEXURA AI", p.Settings.AssistantName)
	require.NotNil(t, p.Onboarding)
	assert.Equal(t, "07:00", p.Onboarding.WakeTime)

	cu, err := f.users.UpdateProfile(ctx, f.userID, model.ProfileUpdate{Currency: ptr("EUR"), Avatar: ptr("https://x/a.png")})
	require.NoError(t, err)
	assert.Equal(t, "EUR", cu.Currency)
	assert.Equal(t, "https://x/a.png", *cu.Avatar)
	assert.Equal(t, "Casey Doe", cu.Name)

	_, err = f.users.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
