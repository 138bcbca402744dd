package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/middleware"
	"github.com/iliyamo/nexura/internal/utils"
)

// RefreshCookie writes and clears the httpOnly refresh-token cookie. TTL
// must be the refresh token lifetime so browser and server agree on expiry.
type RefreshCookie struct {
	Secure bool
	TTL    time.Duration
}

func (rc RefreshCookie) set(c echo.Context, tok utils.SignedToken) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookie,
		Value:    tok.Token,
		Path:     "/",
		MaxAge:   int(rc.TTL / time.Second),
		HttpOnly: true,
		Secure:   rc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (rc RefreshCookie) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   rc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
