// Package service holds the business rules of the API. Services take
// validated input from handlers, talk to the repositories and return
// *apperr.Error values for every failure the caller should see.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/logging"
	"github.com/iliyamo/nexura/internal/repository"
)

// Clock returns the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

// now returns the time in UTC truncated to the second, the precision the
// DATETIME columns store.
func (c Clock) now() time.Time {
	t := time.Now()
	if c != nil {
		t = c()
	}
	return t.UTC().Truncate(time.Second)
}

// CacheInvalidator drops a user's cached responses after a write.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// invalidate is best-effort: a stale cache entry expires on its own.
func invalidate(ctx context.Context, c CacheInvalidator, userID string) {
	if c == nil {
		return
	}
	if err := c.InvalidateUser(ctx, userID); err != nil {
		logging.FromContext(ctx).Warn("cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// utcDay returns midnight UTC of the day containing t.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// notFound maps repository.ErrNotFound to a 404 with msg and wraps
// anything else as an internal error.
func notFound(err error, msg, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal(op, err)
}

// metadata renders a timeline metadata payload.
func metadata(v any) *string {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(bs)
	return &s
}
