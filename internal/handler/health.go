package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process and database health.
type HealthHandler struct {
	DB      Pinger
	Env     string
	Started time.Time
	Now     func() time.Time
}

func NewHealthHandler(db Pinger, env string) *HealthHandler {
	return &HealthHandler{DB: db, Env: env, Started: time.Now(), Now: time.Now}
}

type healthResp struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// Health answers 200 when the database responds to a ping, 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	now := h.Now()
	resp := healthResp{
		Status:      "ok",
		Timestamp:   now.UTC().Format(time.RFC3339),
		Uptime:      now.Sub(h.Started).Seconds(),
		Environment: h.Env,
	}
	status := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// Live is a liveness probe that never touches dependencies.
func Live(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
