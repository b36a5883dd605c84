// Package httpapi is the HTTP edge: routing, token middleware, error
// mapping and the auth endpoint rate limiter.
package httpapi

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/task"
)

// Config carries the dependencies of the HTTP server.
type Config struct {
	Auth   *auth.Service
	Tasks  *task.Service
	Tokens *auth.Manager

	// Ready reports backend readiness for /healthz. Optional; a nil
	// Ready makes /healthz always report ok.
	Ready func(ctx context.Context) error

	// CachePing probes the cache backend for /healthz. A failing probe
	// reports "degraded", never unavailability: the cache is optional.
	CachePing func(ctx context.Context) error

	// Limiter guards the register and login endpoints. Optional.
	Limiter *Limiter
}

// Server dispatches HTTP requests to the auth and task services.
type Server struct {
	auth      *auth.Service
	tasks     *task.Service
	tokens    *auth.Manager
	ready     func(ctx context.Context) error
	cachePing func(ctx context.Context) error
	logger    zerolog.Logger
}

// New creates the server and mounts all routes on a fresh Echo
// instance.
func New(cfg Config) (*Server, *echo.Echo, error) {
	if cfg.Auth == nil {
		return nil, nil, fmt.Errorf("auth service is required")
	}
	if cfg.Tasks == nil {
		return nil, nil, fmt.Errorf("task service is required")
	}
	if cfg.Tokens == nil {
		return nil, nil, fmt.Errorf("token manager is required")
	}

	s := &Server{
		auth:      cfg.Auth,
		tasks:     cfg.Tasks,
		tokens:    cfg.Tokens,
		ready:     cfg.Ready,
		cachePing: cfg.CachePing,
		logger:    log.With().Str("component", "http-server").Logger(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(RequestMetrics())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", s.handleRegister, cfg.Limiter.Middleware())
	authGroup.POST("/login", s.handleLogin, cfg.Limiter.Middleware())
	authGroup.POST("/logout", s.handleLogout)
	authGroup.GET("/profile", s.handleProfile, RequireToken(cfg.Tokens))

	users := e.Group("/api/users", RequireToken(cfg.Tokens))
	users.GET("", s.handleListUsers)
	users.POST("", s.handleCreateUser)
	users.GET("/:id", s.handleGetUser)

	tasks := e.Group("/api/tasks", RequireToken(cfg.Tokens))
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PATCH("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)

	return s, e, nil
}
