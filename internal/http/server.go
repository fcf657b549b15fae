package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/engage-dispatch/internal/config"
	"github.com/jmehdipour/engage-dispatch/internal/db"
	"github.com/jmehdipour/engage-dispatch/internal/http/middleware"
	"github.com/jmehdipour/engage-dispatch/internal/repository"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Dispatcher Dispatcher
	Workspaces repository.WorkspacesRepository
	Redis      *redis.Client
	Health     *db.Health
	Gatherer   prometheus.Gatherer
}

func NewServer(cfg config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Logger.SetLevel(gommonLevel(cfg.Logging.Level))
	log.SetLevel(gommonLevel(cfg.Logging.Level))
	e.Use(echoMid.Recover(), echoMid.RequestID(), echoMid.Logger())

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/readyz", readyHandler(deps.Health))

	// middlewares
	authMW := middleware.APIKeyMiddleware(deps.Workspaces)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          deps.Redis,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ws:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/messages/:channel", sendHandler(deps.Dispatcher))

	return &Server{e: e}
}

func readyHandler(h *db.Health) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h == nil {
			return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if failed := h.Run(ctx); len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		}
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "checks": h.Names()})
	}
}

func gommonLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	log.Infof("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
