package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/service"
)

var currencyRe = regexp.MustCompile(`^[A-Za-z]{3}$`)

// UserHandler serves /users.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type profileReq struct {
	Name       *string `json:"name"`
	Avatar     *string `json:"avatar"`
	Timezone   *string `json:"timezone"`
	Currency   *string `json:"currency"`
	DateFormat *string `json:"dateFormat"`
}

func (r *profileReq) Validate() apperr.FieldErrors {
	fe := apperr.FieldErrors{}
	optLength(fe, "name", r.Name, 2, 50)
	optLength(fe, "avatar", r.Avatar, 0, 500)
	optLength(fe, "timezone", r.Timezone, 1, 64)
	optLength(fe, "dateFormat", r.DateFormat, 1, 20)
	if r.Currency != nil && !currencyRe.MatchString(*r.Currency) {
		fe.Add("currency", "must be a three-letter currency code")
	}
	return fe
}

func (r *profileReq) update() model.ProfileUpdate {
	upd := model.ProfileUpdate{
		Name:       trimmed(r.Name),
		Avatar:     r.Avatar,
		Timezone:   r.Timezone,
		DateFormat: r.DateFormat,
	}
	if r.Currency != nil {
		c := strings.ToUpper(*r.Currency)
		upd.Currency = &c
	}
	return upd
}

// GetProfile returns the caller with settings and onboarding answers.
func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	p, err := h.Users.Profile(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := queryCtx(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, req.update())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
