package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/handler"
	"github.com/iliyamo/nexura/internal/middleware"
)

// RegisterAuth registers /auth. Signup and login are public, login behind
// its own stricter limiter; refresh authenticates with the cookie; logout
// and me with the access token.
func RegisterAuth(g *echo.Group, h *handler.AuthHandler, tokens middleware.AccessVerifier,
	refresh middleware.RefreshValidator, loginLimit echo.MiddlewareFunc) {
	a := g.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login, loginLimit)
	a.POST("/refresh", h.Refresh, middleware.RequireRefresh(refresh))

	access := middleware.RequireAccess(tokens)
	a.POST("/logout", h.Logout, access)
	a.GET("/me", h.Me, access)
}
