package utils // package utils provides helpers for token creation, hashing and password checks

import (
	"crypto/sha256" // SHA-256 digests of refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel errors
	"fmt"           // error wrapping
	"time"          // expiry arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for signing and parsing tokens
	"github.com/google/uuid"       // unique token identifiers (jti)
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, expired, or missing subject. Callers surface it as a generic
// unauthorized response.
var ErrInvalidToken = errors.New("invalid token")

// SignedToken is a serialized JWT together with its expiry.
type SignedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies access and refresh tokens. Both token kinds
// carry only the subject (user id) plus registered claims; they are told
// apart by being signed with different secrets.
type TokenIssuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// NewTokenIssuer builds an issuer using the wall clock in UTC.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueAccessToken signs {sub: userID} with the access secret and TTL.
func (t *TokenIssuer) IssueAccessToken(userID string) (SignedToken, error) {
	return t.sign(userID, t.AccessSecret, t.AccessTTL)
}

// IssueRefreshToken signs {sub: userID} with the refresh secret and TTL.
func (t *TokenIssuer) IssueRefreshToken(userID string) (SignedToken, error) {
	return t.sign(userID, t.RefreshSecret, t.RefreshTTL)
}

func (t *TokenIssuer) sign(userID string, secret []byte, ttl time.Duration) (SignedToken, error) {
	if userID == "" {
		return SignedToken{}, errors.New("sign token: empty subject")
	}
	now := t.now()
	// Second-resolution NumericDate: truncate so ExpiresAt matches what a
	// verifier reads back from the token.
	exp := now.Add(ttl).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		// A fresh jti keeps two tokens minted for the same user within the
		// same second distinct, which rotation depends on.
		ID: uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return SignedToken{Token: signed, ExpiresAt: exp}, nil
}

// VerifyAccessToken checks signature and expiry of an access token.
func (t *TokenIssuer) VerifyAccessToken(raw string) (*jwt.RegisteredClaims, error) {
	return t.verify(raw, t.AccessSecret)
}

// VerifyRefreshToken checks signature and expiry of a refresh token. It does
// not consult the session store; that is the caller's job.
func (t *TokenIssuer) VerifyRefreshToken(raw string) (*jwt.RegisteredClaims, error) {
	return t.verify(raw, t.RefreshSecret)
}

func (t *TokenIssuer) verify(raw string, secret []byte) (*jwt.RegisteredClaims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(tk *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// HashToken returns the SHA-256 hex digest of a raw token. Only this digest
// is persisted so a leaked sessions table cannot be replayed directly.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
