package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nexura/internal/handler"
	"github.com/iliyamo/nexura/internal/middleware"
)

// RegisterUsers registers the caller's profile endpoints.
func RegisterUsers(g *echo.Group, h *handler.UserHandler, access echo.MiddlewareFunc) {
	u := g.Group("/users", access)
	u.GET("/profile", h.GetProfile)
	u.PUT("/profile", h.UpdateProfile)
}

func RegisterHabits(g *echo.Group, h *handler.HabitHandler, access echo.MiddlewareFunc) {
	r := g.Group("/habits", access)
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.POST("/:id/complete", h.Complete)
	r.GET("/:id/completions", h.Completions)
}

func RegisterGoals(g *echo.Group, h *handler.GoalHandler, access echo.MiddlewareFunc) {
	r := g.Group("/goals", access)
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

// RegisterExpenses registers /expenses. Echo matches the static /summary
// route ahead of /:id.
func RegisterExpenses(g *echo.Group, h *handler.ExpenseHandler, access echo.MiddlewareFunc) {
	r := g.Group("/expenses", access)
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/summary", h.Summary)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

// RegisterTimeline registers the read-only timeline behind the per-user
// response cache.
func RegisterTimeline(g *echo.Group, h *handler.TimelineHandler, access echo.MiddlewareFunc,
	cache *middleware.ResponseCache) {
	mws := []echo.MiddlewareFunc{access}
	if cache != nil {
		mws = append(mws, cache.Middleware())
	}
	g.GET("/timeline", h.Day, mws...)
}
