package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/middleware"
	"github.com/iliyamo/nexura/internal/service"
)

// queryTimeout bounds the database work of a single handler call.
const queryTimeout = 5 * time.Second

// validator is implemented by every request body.
type validator interface {
	Validate() apperr.FieldErrors
}

// bindValid decodes the JSON body into req and validates it.
func bindValid(c echo.Context, req validator) error {
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if fe := req.Validate(); !fe.Empty() {
		return apperr.Validation(fe)
	}
	return nil
}

// queryCtx derives the context for the database calls of one request.
func queryCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), queryTimeout)
}

// userID returns the id of the authenticated caller.
func userID(c echo.Context) (string, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return "", apperr.Unauthorized("Unauthorized")
	}
	return p.UserID, nil
}

func clientInfo(c echo.Context) service.ClientInfo {
	return service.ClientInfo{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

// queryBool parses an optional boolean query parameter. def is returned
// when the parameter is absent; nil means no filter.
func queryBool(c echo.Context, name string, def *bool) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		fe := apperr.FieldErrors{}
		fe.Add(name, "must be true or false")
		return nil, apperr.Validation(fe)
	}
	return &v, nil
}

// queryInt parses an optional non-negative integer query parameter,
// clamping it to max when max > 0.
func queryInt(c echo.Context, name string, def, max int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		fe := apperr.FieldErrors{}
		fe.Add(name, "must be a non-negative integer")
		return 0, apperr.Validation(fe)
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}

// message is the body of responses that only confirm an action.
type message struct {
	Message string `json:"message"`
}
