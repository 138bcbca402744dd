package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nexura/internal/database/dbtest"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestHabitRepo_OwnershipAndOrdering(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	habits := repository.NewHabitRepo(db)
	alice := seedUser(t, db, "alice@x.io", "ALICE-01")
	bob := seedUser(t, db, "bob@x.io", "BOB-01")

	mk := func(owner, name string, streak int, created time.Time) model.Habit {
		h := model.Habit{ID: uuid.NewString(), UserID: owner, Name: name, IsActive: true, Streak: streak,
			CreatedAt: created, UpdatedAt: created}
		require.NoError(t, habits.Create(ctx, &h))
		return h
	}
	read := mk(alice.ID, "Read", 1, t0)
	run := mk(alice.ID, "Run", 5, t0)
	med := mk(alice.ID, "Meditate", 1, t0.Add(time.Minute))
	mk(bob.ID, "Bob's", 9, t0)

	list, err := habits.List(ctx, alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{run.ID, med.ID, read.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	_, err = habits.Get(ctx, read.ID, bob.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, habits.SoftDelete(ctx, read.ID, bob.ID, t0), repository.ErrNotFound)

	require.NoError(t, habits.Update(ctx, read.ID, alice.ID, model.HabitUpdate{IsActive: ptr(false), Icon: ptr("book")}, t0))
	active, err := habits.List(ctx, alice.ID, ptr(true))
	require.NoError(t, err)
	assert.Len(t, active, 2)
	got, err := habits.Get(ctx, read.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "book", *got.Icon)

	require.NoError(t, habits.SoftDelete(ctx, run.ID, alice.ID, t0))
	_, err = habits.Get(ctx, run.ID, alice.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHabitRepo_Completions(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	habits := repository.NewHabitRepo(db)
	u := seedUser(t, db, "c@x.io", "C-01")
	h := model.Habit{ID: uuid.NewString(), UserID: u.ID, Name: "Read", IsActive: true, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, habits.Create(ctx, &h))

	for i := 0; i < 3; i++ {
		c := model.HabitCompletion{ID: uuid.NewString(), HabitID: h.ID, UserID: u.ID,
			CompletedAt: t0.AddDate(0, 0, -i), Mood: ptr("good")}
		require.NoError(t, habits.AddCompletion(ctx, &c))
	}

	day := t0.Truncate(24 * time.Hour)
	done, err := habits.CompletedBetween(ctx, h.ID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, done)
	done, err = habits.CompletedBetween(ctx, h.ID, day.Add(24*time.Hour), day.Add(48*time.Hour))
	require.NoError(t, err)
	assert.False(t, done)

	all, err := habits.Completions(ctx, h.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CompletedAt.After(all[1].CompletedAt))

	two, err := habits.Completions(ctx, h.ID, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	h.Streak, h.LongestStreak, h.TotalCompletions = 3, 3, 3
	h.LastCompletedAt = ptr(t0)
	require.NoError(t, habits.SaveStats(ctx, h, t0))
	got, err := habits.Get(ctx, h.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCompletions)
	assert.True(t, t0.Equal(*got.LastCompletedAt))
}

func TestGoalRepo_ProgressAndCompletion(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	goals := repository.NewGoalRepo(db)
	u := seedUser(t, db, "g@x.io", "G-01")

	g := model.Goal{ID: uuid.NewString(), UserID: u.ID, Name: "Save", Type: "budget", Target: 300, Current: 100,
		Unit: "USD", CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, goals.Create(ctx, &g))

	got, err := goals.Get(ctx, g.ID, u.ID)
	require.NoError(t, err)
	assert.InDelta(t, 33.3, got.Progress, 0.001)

	require.NoError(t, goals.Update(ctx, g.ID, u.ID, model.GoalUpdate{Current: ptr(450.0)}, t0))
	ok, err := goals.MarkCompleted(ctx, g.ID, u.ID, t0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = goals.MarkCompleted(ctx, g.ID, u.ID, t0)
	require.NoError(t, err)
	assert.False(t, ok, "already complete")

	done, err := goals.List(ctx, u.ID, ptr(true))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.InDelta(t, 100, done[0].Progress, 0.001)
	open, err := goals.List(ctx, u.ID, ptr(false))
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, goals.SoftDelete(ctx, g.ID, u.ID, t0))
	_, err = goals.Get(ctx, g.ID, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExpenseRepo_FiltersAndAggregates(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	expenses := repository.NewExpenseRepo(db)
	u := seedUser(t, db, "e@x.io", "E-01")
	other := seedUser(t, db, "o@x.io", "O-01")

	add := func(owner string, amount float64, cat string, at time.Time) model.Expense {
		e := model.Expense{ID: uuid.NewString(), UserID: owner, Amount: amount, Category: cat, Date: at,
			Tags: []string{"t"}, CreatedAt: at, UpdatedAt: at}
		require.NoError(t, expenses.Create(ctx, &e))
		return e
	}
	add(u.ID, 12.5, "food", t0)
	add(u.ID, 4, "coffee", t0.Add(-time.Hour))
	big := add(u.ID, 80, "shopping", t0.AddDate(0, 0, -2))
	old := add(u.ID, 7, "food", t0.AddDate(0, 0, -40))
	add(other.ID, 999, "food", t0)

	all, err := expenses.List(ctx, u.ID, model.ExpenseFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"t"}, all[0].Tags)

	from := t0.AddDate(0, 0, -30)
	recent := model.ExpenseFilter{From: &from}
	n, err := expenses.Count(ctx, u.ID, recent)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	food, err := expenses.List(ctx, u.ID, model.ExpenseFilter{Category: "food", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, food, 1)
	assert.Equal(t, old.ID, food[0].ID)

	sums, err := expenses.SumByCategory(ctx, u.ID, recent)
	require.NoError(t, err)
	byCat := map[string]repository.CategoryTotal{}
	for _, s := range sums {
		byCat[s.Category] = s
	}
	assert.InDelta(t, 12.5, byCat["food"].Amount, 0.001)
	assert.Equal(t, 1, byCat["food"].Count)
	assert.InDelta(t, 80, byCat["shopping"].Amount, 0.001)

	top, err := expenses.Top(ctx, u.ID, recent, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, big.ID, top[0].ID)

	require.NoError(t, expenses.Update(ctx, big.ID, u.ID, model.ExpenseUpdate{Amount: ptr(60.0), Tags: []string{}}, t0))
	got, err := expenses.Get(ctx, big.ID, u.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60, got.Amount, 0.001)
	assert.Empty(t, got.Tags)

	require.NoError(t, expenses.SoftDelete(ctx, big.ID, u.ID, t0))
	assert.ErrorIs(t, expenses.SoftDelete(ctx, big.ID, u.ID, t0), repository.ErrNotFound)
}

func TestTimelineRepo_BetweenJoinsDisplayAttributes(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	u := seedUser(t, db, "t@x.io", "T-01")
	habits := repository.NewHabitRepo(db)
	expenses := repository.NewExpenseRepo(db)
	timeline := repository.NewTimelineRepo(db)

	h := model.Habit{ID: uuid.NewString(), UserID: u.ID, Name: "Run", Icon: ptr("run"), Color: ptr("#000000"),
		IsActive: true, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, habits.Create(ctx, &h))
	e := model.Expense{ID: uuid.NewString(), UserID: u.ID, Amount: 3, Category: "coffee", Date: t0, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, expenses.Create(ctx, &e))

	events := []model.TimelineEvent{
		{ID: uuid.NewString(), UserID: u.ID, EventType: model.EventHabit, EventName: "Run", StartTime: t0.Add(time.Hour),
			Duration: ptr(30), RelatedHabitID: &h.ID, CreatedAt: t0},
		{ID: uuid.NewString(), UserID: u.ID, EventType: model.EventExpense, EventName: "coffee", StartTime: t0,
			RelatedExpenseID: &e.ID, CreatedAt: t0},
		{ID: uuid.NewString(), UserID: u.ID, EventType: model.EventCustom, EventName: "yesterday",
			StartTime: t0.AddDate(0, 0, -1), CreatedAt: t0},
	}
	for i := range events {
		require.NoError(t, timeline.Insert(ctx, &events[i]))
	}

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	rows, err := timeline.Between(ctx, u.ID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.EventExpense, rows[0].EventType)
	assert.Equal(t, model.EventHabit, rows[1].EventType)
	assert.Equal(t, "run", *rows[1].HabitIcon)
	assert.Equal(t, 30, *rows[1].Duration)

	require.NoError(t, expenses.SoftDelete(ctx, e.ID, u.ID, t0))
	rows, err = timeline.Between(ctx, u.ID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
