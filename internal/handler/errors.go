package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	StatusCode int                `json:"statusCode"`
	Error      string             `json:"error"`
	Message    string             `json:"message"`
	Fields     apperr.FieldErrors `json:"fields,omitempty"`
	Timestamp  string             `json:"timestamp"`
	Path       string             `json:"path"`
}

// ErrorHandler renders errors returned by handlers and middleware. Typed
// application errors keep their message; anything else becomes a generic
// 500 so internals never reach the client. Logging is left to the request
// logger, which sees the original error.
func ErrorHandler(now func() time.Time) echo.HTTPErrorHandler {
	if now == nil {
		now = time.Now
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg, fields := translate(err)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, ErrorBody{
			StatusCode: status,
			Error:      http.StatusText(status),
			Message:    msg,
			Fields:     fields,
			Timestamp:  now().UTC().Format(time.RFC3339),
			Path:       c.Request().URL.Path,
		})
	}
}

func translate(err error) (int, string, apperr.FieldErrors) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal {
			return http.StatusInternalServerError, "Internal server error", nil
		}
		return ae.Kind.Status(), ae.Message, ae.Fields
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = fmt.Sprint(he.Message)
		}
		if he.Code >= http.StatusInternalServerError && he.Code != http.StatusServiceUnavailable {
			msg = "Internal server error"
		}
		return he.Code, msg, nil
	}
	return http.StatusInternalServerError, "Internal server error", nil
}
