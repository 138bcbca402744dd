package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nexura/internal/config"
)

func newCache(t *testing.T) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: 30 * time.Second, Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	return NewResponseCache(cfg, rdb), mr
}

func TestResponseCache_MissThenHit(t *testing.T) {
	rc, mr := newCache(t)
	calls := 0
	e := echo.New()
	e.GET("/api/habits", func(c echo.Context) error {
		calls++
		c.Response().Header().Set("X-RateLimit-Remaining", "3")
		return c.JSON(http.StatusOK, map[string]int{"calls": calls})
	}, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), Principal{UserID: "u-1"})))
			return next(c)
		}
	}, rc.Middleware())

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/habits?active=true", nil))
		return rec
	}

	first := get()
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())
	assert.Len(t, mr.Keys(), 1)
	assert.Contains(t, mr.Keys()[0], "cache:u:u-1:")

	second := get()
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Empty(t, second.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, calls)

	require.NoError(t, rc.InvalidateUser(context.Background(), "u-1"))
	assert.Empty(t, mr.Keys())
	third := get()
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestResponseCache_SkipsErrorsAndOtherMethods(t *testing.T) {
	rc, mr := newCache(t)
	e := echo.New()
	mw := rc.Middleware()
	e.GET("/missing", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) }, mw)
	e.POST("/things", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, mw)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/things", nil))
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, mr.Keys())
}

func TestResponseCache_InvalidateIsScopedToUser(t *testing.T) {
	rc, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("cache:u:u-1:aa", "x"))
	require.NoError(t, mr.Set("cache:u:u-1:bb", "x"))
	require.NoError(t, mr.Set("cache:u:u-10:cc", "x"))

	require.NoError(t, rc.InvalidateUser(ctx, "u-1"))
	assert.Equal(t, []string{"cache:u:u-10:cc"}, mr.Keys())
}

func TestResponseCache_DisabledIsNoop(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	assert.NoError(t, rc.InvalidateUser(context.Background(), "u"))
	called := false
	h := rc.Middleware()(func(c echo.Context) error { called = true; return nil })
	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, h(c))
	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}
