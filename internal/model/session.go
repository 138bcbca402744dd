package model

import "time"

// AuthSession models a row in `auth_sessions`: one logical refresh-token
// lineage. Rotation replaces RefreshTokenHash on the same row; logout sets
// IsRevoked on every row of the user. Only the SHA-256 digest of the
// refresh token is stored.
//
// Fields:
//
//	ID               – primary key (UUID string).
//	UserID           – owner of the session.
//	RefreshTokenHash – digest of the currently valid refresh token.
//	ExpiresAt        – expiry of the current refresh token.
//	IsRevoked        – set on logout; revoked rows never validate again.
//	LastUsedAt       – bumped on every refresh.
//	UserAgent        – client user agent at creation.
//	IP               – client address at creation.
//	CreatedAt        – creation timestamp.
type AuthSession struct {
	ID               string     // auth_sessions.id
	UserID           string     // auth_sessions.user_id
	RefreshTokenHash string     // auth_sessions.refresh_token_hash
	ExpiresAt        time.Time  // auth_sessions.expires_at
	IsRevoked        bool       // auth_sessions.is_revoked
	LastUsedAt       *time.Time // auth_sessions.last_used_at (nullable)
	UserAgent        string     // auth_sessions.user_agent
	IP               string     // auth_sessions.ip
	CreatedAt        time.Time  // auth_sessions.created_at
}

// ValidAt reports whether the session can back a refresh at now.
func (s AuthSession) ValidAt(now time.Time) bool {
	return !s.IsRevoked && s.ExpiresAt.After(now)
}

// RefreshPrincipal is what a validated refresh cookie resolves to: the
// owning user and the session row the token belongs to.
type RefreshPrincipal struct {
	ID        string
	Email     string
	Name      string
	Handle    string
	SessionID string
	TokenHash string
}
