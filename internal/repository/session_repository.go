package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/nexura/internal/model"
)

// SessionRepo persists refresh-token sessions. Tokens are only ever seen
// here as SHA-256 digests.
type SessionRepo struct{ db DBTX }

func NewSessionRepo(db DBTX) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, is_revoked, last_used_at, user_agent, ip, created_at`

func scanSession(s rowScanner) (model.AuthSession, error) {
	var (
		as   model.AuthSession
		last sql.NullTime
	)
	if err := s.Scan(&as.ID, &as.UserID, &as.RefreshTokenHash, &as.ExpiresAt, &as.IsRevoked,
		&last, &as.UserAgent, &as.IP, &as.CreatedAt); err != nil {
		return model.AuthSession{}, translate(err)
	}
	as.ExpiresAt = as.ExpiresAt.UTC()
	as.CreatedAt = as.CreatedAt.UTC()
	as.LastUsedAt = timePtr(last)
	return as, nil
}

// Create inserts a new active session.
func (r *SessionRepo) Create(ctx context.Context, s *model.AuthSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, refresh_token_hash, expires_at, is_revoked,
			last_used_at, user_agent, ip, created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.IsRevoked, nullable(s.LastUsedAt),
		s.UserAgent, s.IP, s.CreatedAt)
	return translate(err)
}

// FindValid returns the non-revoked, unexpired session of userID whose
// current token digest is tokenHash. Rotated-away, revoked and expired
// tokens all yield ErrNotFound.
func (r *SessionRepo) FindValid(ctx context.Context, userID, tokenHash string, now time.Time) (model.AuthSession, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+` FROM auth_sessions
		 WHERE user_id=? AND refresh_token_hash=? AND is_revoked=FALSE AND expires_at>?
		 LIMIT 1`, userID, tokenHash, now))
}

// GetByID fetches a session by id regardless of state.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.AuthSession, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM auth_sessions WHERE id=? LIMIT 1", id))
}

// Rotate swaps the token digest of a session in place. The update only
// applies while the row still holds oldHash and is not revoked, so of two
// concurrent refreshes presenting the same token exactly one wins; the
// other gets ErrStaleSession.
func (r *SessionRepo) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET refresh_token_hash=?, expires_at=?, last_used_at=?
		 WHERE id=? AND refresh_token_hash=? AND is_revoked=FALSE`,
		newHash, expiresAt, now, id, oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleSession
	}
	return nil
}

// RevokeAllForUser revokes every active session of the user and returns
// how many rows changed.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE auth_sessions SET is_revoked=TRUE WHERE user_id=? AND is_revoked=FALSE", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
