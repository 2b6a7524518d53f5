package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/codedrop/internal/adapter/metrics"
	"github.com/pscheid92/codedrop/internal/broadcast"
)

const (
	readBufferSize  = 1024
	writeBufferSize = 4096
)

// Config holds the HTTP listener and subscriber admission settings.
type Config struct {
	Port           string
	MaxConnections int
	ConnectRate    float64
	ConnectBurst   int
	AllowedOrigins []string
	Development    bool
}

type leadershipStatus interface {
	Leading() bool
}

type identityCache interface {
	Len() int
}

// Deps are the collaborators the server serves. Metrics fields, Leadership and Identities may be nil.
type Deps struct {
	Hub              *broadcast.Hub
	Clock            clockwork.Clock
	WebSocketMetrics *metrics.WebSocketMetrics
	HTTPMetrics      *metrics.HTTPMetrics
	MetricsHandler   http.Handler
	HealthChecks     []HealthCheck
	Leadership       leadershipStatus
	Identities       identityCache
}

type Server struct {
	echo   *echo.Echo
	config Config

	hub          *broadcast.Hub
	clock        clockwork.Clock
	upgrader     websocket.Upgrader
	connections  *ConnectionLimiter
	wsMetrics    *metrics.WebSocketMetrics
	httpMetrics  *metrics.HTTPMetrics
	metrics      http.Handler
	healthChecks []HealthCheck
	leadership   leadershipStatus
	identities   identityCache
	startTime    time.Time
}

func NewServer(cfg Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		hub:          deps.Hub,
		clock:        clock,
		connections:  NewConnectionLimiter(int64(cfg.MaxConnections)),
		wsMetrics:    deps.WebSocketMetrics,
		httpMetrics:  deps.HTTPMetrics,
		metrics:      deps.MetricsHandler,
		healthChecks: deps.HealthChecks,
		leadership:   deps.Leadership,
		identities:   deps.Identities,
		startTime:    clock.Now(),
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin:     NewCheckOrigin(cfg.AllowedOrigins, cfg.Development),
		Error:           writeUpgradeError,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
