package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/utils"
)

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireAccess(t *testing.T) {
	issuer := utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	access, err := issuer.IssueAccessToken("user-1")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken("user-1")
	require.NoError(t, err)

	var seen Principal
	h := RequireAccess(issuer)(func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		require.True(t, ok)
		seen = p
		return c.NoContent(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", "Bearer " + access.Token, true},
		{"missing", "", false},
		{"wrong scheme", "Basic " + access.Token, false},
		{"refresh token", "Bearer " + refresh.Token, false},
		{"garbage", "Bearer abc.def.ghi", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Principal{}
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c, _ := newContext(req)
			err := h(c)
			if !tt.ok {
				assert.ErrorIs(t, err, apperr.ErrUnauthorized)
				assert.Empty(t, seen.UserID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", seen.UserID)
		})
	}
}

type fakeRefreshValidator struct {
	raw string
	rp  model.RefreshPrincipal
	err error
}

func (f *fakeRefreshValidator) ValidateRefresh(_ context.Context, raw string) (model.RefreshPrincipal, error) {
	f.raw = raw
	return f.rp, f.err
}

func TestRequireRefresh(t *testing.T) {
	ok := func(c echo.Context) error {
		rp, found := RefreshPrincipalFrom(c)
		if !found {
			return errors.New("no refresh principal")
		}
		p, _ := PrincipalFrom(c)
		return c.String(http.StatusOK, rp.SessionID+"/"+p.UserID)
	}

	t.Run("missing cookie fails closed", func(t *testing.T) {
		v := &fakeRefreshValidator{}
		c, _ := newContext(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
		err := RequireRefresh(v)(ok)(c)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		assert.Empty(t, v.raw, "validator must not be called")
	})

	t.Run("validator error propagates", func(t *testing.T) {
		v := &fakeRefreshValidator{err: apperr.Unauthorized("Invalid refresh token")}
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "tok"})
		c, _ := newContext(req)
		assert.ErrorIs(t, RequireRefresh(v)(ok)(c), apperr.ErrUnauthorized)
		assert.Equal(t, "tok", v.raw)
	})

	t.Run("principal attached", func(t *testing.T) {
		v := &fakeRefreshValidator{rp: model.RefreshPrincipal{ID: "u-1", SessionID: "s-1"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "tok"})
		c, rec := newContext(req)
		require.NoError(t, RequireRefresh(v)(ok)(c))
		assert.Equal(t, "s-1/u-1", rec.Body.String())
	})
}
