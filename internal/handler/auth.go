package handler

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/middleware"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/service"
	"github.com/iliyamo/nexura/internal/utils"
)

// AuthHandler serves /auth. Refresh tokens only ever travel in the
// httpOnly cookie; access tokens only in response bodies.
type AuthHandler struct {
	Auth   *service.AuthService
	Cookie RefreshCookie
}

func NewAuthHandler(auth *service.AuthService, cookie RefreshCookie) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookie: cookie}
}

// ----- DTOs -----

type signupReq struct {
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Password   string        `json:"password"`
	Age        int           `json:"age"`
	Onboarding onboardingReq `json:"onboarding"`
}

type onboardingReq struct {
	LifeAreas     model.LifeAreas `json:"lifeAreas"`
	PrimaryGoals  []string        `json:"primaryGoals"`
	CurrentHabits []string        `json:"currentHabits"`
	Budget        float64         `json:"budget"`
	WakeTime      string          `json:"wakeTime"`
	BedTime       string          `json:"bedTime"`
}

func (r *signupReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	length(fe, "name", r.Name, 2, 50)
	if !emailRe.MatchString(strings.TrimSpace(r.Email)) {
		fe.Add("email", "must be a valid email address")
	}
	checkPassword(fe, r.Password)
	if r.Age < 18 {
		fe.Add("age", "must be at least 18")
	} else if r.Age > 120 {
		fe.Add("age", "must be at most 120")
	}

	o := r.Onboarding
	for _, a := range []struct {
		name  string
		score int
	}{
		{"wellness", o.LifeAreas.Wellness},
		{"productivity", o.LifeAreas.Productivity},
		{"finance", o.LifeAreas.Finance},
		{"relationships", o.LifeAreas.Relationships},
		{"learning", o.LifeAreas.Learning},
		{"sleep", o.LifeAreas.Sleep},
	} {
		if a.score < 1 || a.score > 10 {
			fe.Add("onboarding.lifeAreas."+a.name, "must be between 1 and 10")
		}
	}
	if n := len(o.PrimaryGoals); n < 3 || n > 5 {
		fe.Add("onboarding.primaryGoals", "must list 3 to 5 goals")
	}
	if o.Budget <= 0 {
		fe.Add("onboarding.budget", "must be positive")
	}
	if !clockRe.MatchString(o.WakeTime) {
		fe.Add("onboarding.wakeTime", "must be a time of day (HH:MM)")
	}
	if !clockRe.MatchString(o.BedTime) {
		fe.Add("onboarding.bedTime", "must be a time of day (HH:MM)")
	}
	return fe
}

// checkPassword requires eight characters with an upper-case letter, a
// lower-case letter and a digit. bcrypt caps the input at 72 bytes.
func checkPassword(fe apperr.FieldErrors, pw string) {
	if len(pw) < 8 {
		fe.Add("password", "must be at least 8 characters")
	}
	if len(pw) > utils.MaxPasswordBytes {
		fe.Add("password", "must be at most 72 bytes")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		fe.Add("password", "must contain an uppercase letter")
	}
	if !lower {
		fe.Add("password", "must contain a lowercase letter")
	}
	if !digit {
		fe.Add("password", "must contain a number")
	}
}

func (r *signupReq) input() service.SignupInput {
	o := r.Onboarding
	habits := o.CurrentHabits
	if habits == nil {
		habits = []string{}
	}
	return service.SignupInput{
		Name:     strings.TrimSpace(r.Name),
		Email:    r.Email,
		Password: r.Password,
		Age:      r.Age,
		Onboarding: model.Onboarding{
			LifeAreas:     o.LifeAreas,
			PrimaryGoals:  o.PrimaryGoals,
			CurrentHabits: habits,
			MonthlyBudget: o.Budget,
			WakeTime:      o.WakeTime,
			BedTime:       o.BedTime,
		},
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	if !emailRe.MatchString(strings.TrimSpace(r.Email)) {
		fe.Add("email", "must be a valid email address")
	}
	if r.Password == "" {
		fe.Add("password", "is required")
	}
	return fe
}

type authResp struct {
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"accessToken"`
}

type accessResp struct {
	AccessToken string `json:"accessToken"`
}

// Signup creates the account and opens its first session.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	res, err := h.Auth.Signup(ctx, req.input(), clientInfo(c))
	if err != nil {
		return err
	}
	h.Cookie.set(c, res.Refresh)
	return c.JSON(http.StatusCreated, authResp{User: res.User, AccessToken: res.Access.Token})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password, clientInfo(c))
	if err != nil {
		return err
	}
	h.Cookie.set(c, res.Refresh)
	return c.JSON(http.StatusOK, authResp{User: res.User, AccessToken: res.Access.Token})
}

// Refresh rotates the session behind the cookie validated by
// middleware.RequireRefresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	rp, ok := middleware.RefreshPrincipalFrom(c)
	if !ok {
		return apperr.Unauthorized("Unauthorized")
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, rp, clientInfo(c))
	if err != nil {
		return err
	}
	h.Cookie.set(c, pair.Refresh)
	return c.JSON(http.StatusOK, accessResp{AccessToken: pair.Access.Token})
}

// Logout revokes every session of the caller and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, uid, clientInfo(c)); err != nil {
		return err
	}
	h.Cookie.clear(c)
	return c.JSON(http.StatusOK, message{Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	u, err := h.Auth.CurrentUser(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
