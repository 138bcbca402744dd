// Package router assembles the echo instance: global middleware, the API
// route groups and the operational endpoints.
package router

import (
	"database/sql"
	"net"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/config"
	"github.com/iliyamo/nexura/internal/handler"
	"github.com/iliyamo/nexura/internal/middleware"
	"github.com/iliyamo/nexura/internal/service"
	"github.com/iliyamo/nexura/internal/utils"
)

const (
	bodyLimit             = "1M"
	defaultRequestTimeout = 15 * time.Second
)

// Deps carries everything the router wires. Redis may be nil, in which case
// limiters run in memory and the response cache is bypassed.
type Deps struct {
	Config     config.Config
	RateLimit  config.RateLimitConfig
	LoginLimit config.RateLimitConfig
	Logger     *zap.Logger
	DB         *sql.DB
	Redis      *redis.Client
	Gatherer   prometheus.Gatherer
	Metrics    *middleware.Metrics
	Cache      *middleware.ResponseCache
	Tokens     *utils.TokenIssuer

	Auth     *service.AuthService
	Users    *service.UserService
	Habits   *service.HabitService
	Goals    *service.GoalService
	Expenses *service.ExpenseService
	Timeline *service.TimelineService
}

// New returns a fully wired echo instance.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Config.RequestTimeout <= 0 {
		d.Config.RequestTimeout = defaultRequestTimeout
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(nil)
	e.IPExtractor = ipExtractor(d.Config.TrustedProxies)

	e.Use(echomw.RequestID())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
		},
	}))
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: d.Config.RequestTimeout}))

	RegisterRoutes(e, d)

	api := e.Group(apiPrefix(d.Config.APIPrefix),
		middleware.RateLimit(d.RateLimit, middleware.NewLimiter(d.RateLimit, d.Redis)))
	api.GET("/health", handler.NewHealthHandler(d.DB, d.Config.Env).Health)

	cookie := handler.RefreshCookie{Secure: d.Config.IsProduction(), TTL: d.Config.RefreshTTL}
	loginLimit := middleware.RateLimit(d.LoginLimit, middleware.NewLimiter(d.LoginLimit, d.Redis))
	RegisterAuth(api, handler.NewAuthHandler(d.Auth, cookie), d.Tokens, d.Auth, loginLimit)

	access := middleware.RequireAccess(d.Tokens)
	RegisterUsers(api, handler.NewUserHandler(d.Users), access)
	RegisterHabits(api, handler.NewHabitHandler(d.Habits), access)
	RegisterGoals(api, handler.NewGoalHandler(d.Goals), access)
	RegisterExpenses(api, handler.NewExpenseHandler(d.Expenses), access)
	RegisterTimeline(api, handler.NewTimelineHandler(d.Timeline), access, d.Cache)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints that
// live outside the API prefix.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Live)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
}

// ipExtractor decides what c.RealIP returns, which keys the rate limiters.
// Without trusted proxies the socket peer is the client and forwarding
// headers are ignored.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false), echo.TrustLinkLocal(false), echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func apiPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
