package middleware

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
)

// RefreshCookie is the name of the httpOnly cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

// Principal identifies the caller of a request authenticated with an
// access token.
type Principal struct {
	UserID string
}

// AccessVerifier checks an access token and returns its claims.
type AccessVerifier interface {
	VerifyAccessToken(raw string) (*jwt.RegisteredClaims, error)
}

// RefreshValidator resolves a raw refresh token to the session it backs,
// failing when the signature, expiry, session row or user state is not
// acceptable.
type RefreshValidator interface {
	ValidateRefresh(ctx context.Context, raw string) (model.RefreshPrincipal, error)
}

type principalKey struct{}
type refreshKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by RequireAccess.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// PrincipalFrom returns the principal of an authenticated request.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	return PrincipalFromContext(c.Request().Context())
}

// RefreshPrincipalFrom returns the principal stored by RequireRefresh.
func RefreshPrincipalFrom(c echo.Context) (model.RefreshPrincipal, bool) {
	p, ok := c.Request().Context().Value(refreshKey{}).(model.RefreshPrincipal)
	return p, ok && p.ID != ""
}

// RequireAccess authenticates the request with a Bearer access token and
// attaches the typed Principal to the request context.
func RequireAccess(v AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return apperr.Unauthorized("Unauthorized")
			}
			claims, err := v.VerifyAccessToken(strings.TrimSpace(raw))
			if err != nil {
				return apperr.Unauthorized("Unauthorized")
			}
			p := Principal{UserID: claims.Subject}
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// RequireRefresh authenticates the request with the refresh cookie. A
// missing cookie fails closed; everything else is delegated to v.
func RequireRefresh(v RefreshValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(RefreshCookie)
			if err != nil || ck.Value == "" {
				return apperr.Unauthorized("Unauthorized")
			}
			rp, err := v.ValidateRefresh(c.Request().Context(), ck.Value)
			if err != nil {
				return err
			}
			ctx := context.WithValue(c.Request().Context(), refreshKey{}, rp)
			ctx = WithPrincipal(ctx, Principal{UserID: rp.ID})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// userKey returns the caller's user id for keying limits and caches, or
// "anon" for unauthenticated requests.
func userKey(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.UserID
	}
	return "anon"
}
