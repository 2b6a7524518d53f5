package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/codedrop/internal/broadcast"
	apperrors "github.com/pscheid92/codedrop/internal/platform/errors"
)

// handleWebSocket upgrades the request and keeps the subscriber registered until it disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()

	if !s.connections.Acquire() {
		s.countConnection("rejected")
		return apperrors.UnavailableError("subscriber limit reached").WithField("max_connections", s.connections.Max())
	}

	// The upgrader writes its own error response.
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.connections.Release()
		s.countConnection("upgrade_failed")
		return nil
	}

	sub := broadcast.NewConn(conn, s.clock, s.wsMetrics)
	sub.OnClose(func() {
		s.hub.Unregister(sub)
		s.connections.Release()
		slog.DebugContext(ctx, "Subscriber disconnected", "subscriber_id", sub.ID())
	})
	s.hub.Register(sub)
	s.countConnection("accepted")
	slog.DebugContext(ctx, "Subscriber connected", "subscriber_id", sub.ID(), "remote_ip", c.RealIP())

	sub.ReadLoop()
	return nil
}

func (s *Server) countConnection(result string) {
	if s.wsMetrics != nil {
		s.wsMetrics.ConnectionsTotal.WithLabelValues(result).Inc()
	}
}
