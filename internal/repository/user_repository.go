package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/nexura/internal/model"
)

// UserRepo stores accounts together with their settings and onboarding rows.
type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, name, age, handle, avatar, timezone, currency,
	date_format, email_verified, is_active, is_deleted, last_login_at, created_at, updated_at`

func scanUser(s rowScanner) (model.User, error) {
	var (
		u      model.User
		avatar sql.NullString
		last   sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Age, &u.Handle, &avatar,
		&u.Timezone, &u.Currency, &u.DateFormat, &u.EmailVerified, &u.IsActive, &u.IsDeleted,
		&last, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translate(err)
	}
	u.Avatar = strPtr(avatar)
	u.LastLoginAt = timePtr(last)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailTaken reports whether a non-deleted account uses email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE email=? AND is_deleted=FALSE LIMIT 1",
		NormalizeEmail(email)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LatestHandleWithPrefix returns the handle "PREFIX-n" with the largest
// numeric suffix, or "" when none exists. Ordering by length first makes
// PREFIX-100 sort above PREFIX-99. prefix must contain only A-Z so it needs
// no LIKE escaping.
func (r *UserRepo) LatestHandleWithPrefix(ctx context.Context, prefix string) (string, error) {
	var h string
	err := r.db.QueryRowContext(ctx,
		"SELECT handle FROM users WHERE handle LIKE ? ORDER BY LENGTH(handle) DESC, handle DESC LIMIT 1",
		prefix+"-%").Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return h, err
}

// CreateWithProfile inserts the user, its settings and its onboarding
// answers. r must be bound to a transaction for the three inserts to be
// atomic; see WithTx.
func (r *UserRepo) CreateWithProfile(ctx context.Context, u *model.User, s model.UserSettings, o model.Onboarding) error {
	u.Email = NormalizeEmail(u.Email)
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, age, handle, avatar, timezone, currency,
			date_format, email_verified, is_active, is_deleted, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Age, u.Handle, nullable(u.Avatar), u.Timezone,
		u.Currency, u.DateFormat, u.EmailVerified, u.IsActive, u.IsDeleted, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return translate(err)
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, assistant_name, ai_personality, theme,
			notifications_enabled, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		u.ID, s.AssistantName, s.AIPersonality, s.Theme, s.NotificationsEnabled, u.CreatedAt, u.CreatedAt,
	); err != nil {
		return translate(err)
	}

	goals, err := encodeList(o.PrimaryGoals)
	if err != nil {
		return err
	}
	habits, err := encodeList(o.CurrentHabits)
	if err != nil {
		return err
	}
	a := o.LifeAreas
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_onboarding (user_id, wellness_score, productivity_score, finance_score,
			relationships_score, learning_score, sleep_score, primary_goals, current_habits,
			monthly_budget, wake_time, bed_time, created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, a.Wellness, a.Productivity, a.Finance, a.Relationships, a.Learning, a.Sleep,
		goals, habits, o.MonthlyBudget, o.WakeTime, o.BedTime, u.CreatedAt,
	)
	return translate(err)
}

// GetByEmail fetches a non-deleted user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_deleted=FALSE LIMIT 1",
		NormalizeEmail(email)))
}

// GetByID fetches a user by id. Soft-deleted rows are returned too so that
// callers can tell "deleted" from "missing"; use User.CanAuthenticate.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET last_login_at=?, updated_at=? WHERE id=?", at, at, id)
	return err
}

// UpdateProfile applies the non-nil fields of upd.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate, now time.Time) error {
	sets := []string{"updated_at=?"}
	args := []any{now}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	add("name", upd.Name)
	add("avatar", upd.Avatar)
	add("timezone", upd.Timezone)
	add("currency", upd.Currency)
	add("date_format", upd.DateFormat)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=? AND is_deleted=FALSE", args...)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

// GetSettings returns the settings row of a user.
func (r *UserRepo) GetSettings(ctx context.Context, userID string) (model.UserSettings, error) {
	s := model.UserSettings{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT assistant_name, ai_personality, theme, notifications_enabled, created_at, updated_at
		 FROM user_settings WHERE user_id=?`, userID).
		Scan(&s.AssistantName, &s.AIPersonality, &s.Theme, &s.NotificationsEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.UserSettings{}, translate(err)
	}
	return s, nil
}

// GetOnboarding returns the onboarding answers of a user.
func (r *UserRepo) GetOnboarding(ctx context.Context, userID string) (model.Onboarding, error) {
	o := model.Onboarding{UserID: userID}
	var goals, habits string
	a := &o.LifeAreas
	err := r.db.QueryRowContext(ctx,
		`SELECT wellness_score, productivity_score, finance_score, relationships_score, learning_score,
			sleep_score, primary_goals, current_habits, monthly_budget, wake_time, bed_time, created_at
		 FROM user_onboarding WHERE user_id=?`, userID).
		Scan(&a.Wellness, &a.Productivity, &a.Finance, &a.Relationships, &a.Learning, &a.Sleep,
			&goals, &habits, &o.MonthlyBudget, &o.WakeTime, &o.BedTime, &o.CreatedAt)
	if err != nil {
		return model.Onboarding{}, translate(err)
	}
	if o.PrimaryGoals, err = decodeList(goals); err != nil {
		return model.Onboarding{}, err
	}
	if o.CurrentHabits, err = decodeList(habits); err != nil {
		return model.Onboarding{}, err
	}
	return o, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
