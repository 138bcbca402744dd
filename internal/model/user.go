package model

import "time"

// User represents an application account as stored in the `users` table.
// Users are never hard-deleted; IsDeleted marks a soft delete. The JSON
// tags are omitted because the password hash must never leave the service;
// handlers render PublicUser or Profile instead.
//
// Fields:
//
//	ID            – primary key (UUID string).
//	Email         – unique, lower-cased email address.
//	PasswordHash  – bcrypt hash of the password.
//	Name          – display name.
//	Age           – age given at signup.
//	Handle        – unique human readable handle such as ALEX-01.
//	Avatar        – optional avatar URL.
//	Timezone      – IANA zone name used by the frontend.
//	Currency      – ISO currency code.
//	DateFormat    – preferred date format.
//	EmailVerified – whether the email address was confirmed.
//	IsActive      – inactive accounts cannot log in or refresh.
//	IsDeleted     – soft delete flag.
//	LastLoginAt   – timestamp of the last successful login.
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type User struct {
	ID            string     // users.id
	Email         string     // users.email
	PasswordHash  string     // users.password_hash
	Name          string     // users.name
	Age           int        // users.age
	Handle        string     // users.handle
	Avatar        *string    // users.avatar (nullable)
	Timezone      string     // users.timezone
	Currency      string     // users.currency
	DateFormat    string     // users.date_format
	EmailVerified bool       // users.email_verified
	IsActive      bool       // users.is_active
	IsDeleted     bool       // users.is_deleted
	LastLoginAt   *time.Time // users.last_login_at (nullable)
	CreatedAt     time.Time  // users.created_at
	UpdatedAt     time.Time  // users.updated_at
}

// CanAuthenticate reports whether the account may log in or refresh.
func (u User) CanAuthenticate() bool {
	return u.IsActive && !u.IsDeleted
}

// PublicUser is the identity view returned by signup and login. It never
// includes the password hash.
type PublicUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Handle string `json:"userId"`
}

// Public returns the public identity view of u.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Handle: u.Handle}
}

// CurrentUser is the view returned by GET /auth/me.
type CurrentUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Handle        string    `json:"userId"`
	Avatar        *string   `json:"avatar"`
	Timezone      string    `json:"timezone"`
	Currency      string    `json:"currency"`
	DateFormat    string    `json:"dateFormat"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Current returns the /auth/me view of u.
func (u User) Current() CurrentUser {
	return CurrentUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Handle:        u.Handle,
		Avatar:        u.Avatar,
		Timezone:      u.Timezone,
		Currency:      u.Currency,
		DateFormat:    u.DateFormat,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// UserSettings holds per-user assistant and notification preferences, one
// row per user in `user_settings`. Rows are created with defaults at signup.
type UserSettings struct {
	UserID               string    `json:"-"`
	AssistantName        string    `json:"assistantName"`
	AIPersonality        string    `json:"aiPersonality"`
	Theme                string    `json:"theme"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings row created for a new user.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:               userID,
		AssistantName:        "NEXURA AI",
		AIPersonality:        "balanced",
		Theme:                "dark",
		NotificationsEnabled: true,
	}
}

// LifeAreas are the self-assessed 1-10 scores captured during onboarding.
type LifeAreas struct {
	Wellness      int `json:"wellness"`
	Productivity  int `json:"productivity"`
	Finance       int `json:"finance"`
	Relationships int `json:"relationships"`
	Learning      int `json:"learning"`
	Sleep         int `json:"sleep"`
}

// Onboarding stores the answers given in the signup wizard, one row per
// user in `user_onboarding`.
type Onboarding struct {
	UserID        string    `json:"-"`
	LifeAreas     LifeAreas `json:"lifeAreas"`
	PrimaryGoals  []string  `json:"primaryGoals"`
	CurrentHabits []string  `json:"currentHabits"`
	MonthlyBudget float64   `json:"monthlyBudget"`
	WakeTime      string    `json:"wakeTime"`
	BedTime       string    `json:"bedTime"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Profile is the full view served by GET /users/profile.
type Profile struct {
	CurrentUser
	Settings   *UserSettings `json:"settings"`
	Onboarding *Onboarding   `json:"onboarding"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name       *string
	Avatar     *string
	Timezone   *string
	Currency   *string
	DateFormat *string
}
