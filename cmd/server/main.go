package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/codedrop/internal/adapter/httpserver"
	"github.com/pscheid92/codedrop/internal/adapter/metrics"
	"github.com/pscheid92/codedrop/internal/adapter/redis"
	"github.com/pscheid92/codedrop/internal/adapter/telegram"
	"github.com/pscheid92/codedrop/internal/app"
	"github.com/pscheid92/codedrop/internal/broadcast"
	"github.com/pscheid92/codedrop/internal/domain"
	"github.com/pscheid92/codedrop/internal/platform/config"
	"github.com/pscheid92/codedrop/internal/platform/logging"
	"github.com/pscheid92/codedrop/internal/platform/version"
)

const (
	shutdownTimeout = 10 * time.Second
	preloadTimeout  = 5 * time.Second
)

func runGracefulShutdown(ctx context.Context, cancel context.CancelFunc, srv *httpserver.Server, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			slog.Info("Shutdown signal received, cleaning up...")
		case <-ctx.Done():
			slog.Warn("Upstream stopped, shutting down")
		}
		cancel()

		hub.CloseAll("server shutting down")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, m *metrics.RedisMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupTelegram(ctx context.Context, cfg *config.Config) *telegram.Client {
	client, err := telegram.New(ctx, telegram.Config{
		AppID:         cfg.TelegramAPIID,
		AppHash:       cfg.TelegramAPIHash,
		SessionString: cfg.TelegramSession,
		SessionFile:   cfg.TelegramSessionFile,
		Workers:       cfg.EventWorkers,
	})
	if err != nil {
		slog.Error("Failed to set up Telegram client", "error", err)
		os.Exit(1)
	}
	return client
}

func preloadIdentities(ctx context.Context, resolver *app.Resolver) {
	ctx, cancel := context.WithTimeout(ctx, preloadTimeout)
	defer cancel()

	count, err := resolver.Preload(ctx)
	if err != nil {
		slog.Warn("Starting with empty identity cache", "error", err)
		return
	}
	slog.Info("Identity cache preloaded", "count", count)
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := metrics.NewRegistry()
	wsMetrics := metrics.NewWebSocketMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	hub := broadcast.NewHub(wsMetrics)

	tgClient := setupTelegram(ctx, cfg)
	instanceID := uuid.NewString()

	// Without Redis the hub publishes directly, identities live only in memory and this
	// instance always ingests.
	var (
		publisher domain.RecordPublisher = hub
		store     domain.IdentityStore
		lease     domain.Lease
		redisPing func(ctx context.Context) error
	)
	if cfg.RedisURL != "" {
		redisMetrics := metrics.NewRedisMetrics(registry)
		redisClient := setupRedis(ctx, cfg, redisMetrics)
		defer func() { _ = redisClient.Close() }()

		relay := redis.NewRelay(redisClient, hub, redisMetrics)
		if err := relay.Start(ctx); err != nil {
			slog.Error("Failed to start record relay", "error", err)
			os.Exit(1)
		}

		publisher = relay
		store = redis.NewIdentityStore(redisClient)
		lease = redis.NewLeaderLease(redisClient, instanceID, cfg.LeaderLeaseTTL)
		redisPing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	leadership := app.NewLeadership(lease, cfg.LeaderLeaseTTL, clock)
	resolver := app.NewResolver(tgClient, store, cfg.ResolveTimeout)
	preloadIdentities(ctx, resolver)

	healthChecks := []httpserver.HealthCheck{{
		Name:  "telegram",
		Check: app.IngestionReadiness(leadership.Leading, tgClient.Ready, resolver.WarmedUp),
	}}
	if redisPing != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: redisPing})
	}

	filter := app.NewFilter(cfg.Subjects(), resolver.Identities())
	pipeline := app.NewPipeline(resolver, filter, publisher, pipelineMetrics, clock)

	srv := httpserver.NewServer(httpserver.Config{
		Port:           cfg.Port,
		MaxConnections: cfg.MaxWebSocketConnections,
		ConnectRate:    cfg.WebSocketConnectRate,
		ConnectBurst:   cfg.WebSocketConnectBurst,
		AllowedOrigins: cfg.WebSocketAllowedOrigins,
		Development:    cfg.IsDevelopment(),
	}, httpserver.Deps{
		Hub:              hub,
		Clock:            clock,
		WebSocketMetrics: wsMetrics,
		HTTPMetrics:      httpMetrics,
		MetricsHandler:   metrics.Handler(registry),
		HealthChecks:     healthChecks,
		Leadership:       leadership,
		Identities:       resolver.Identities(),
	})

	done := runGracefulShutdown(ctx, cancel, srv, hub)

	exitCode := 0
	upstreamDone := make(chan struct{})
	go func() {
		defer close(upstreamDone)
		defer cancel()

		handler := func(ctx context.Context, ev domain.InboundEvent) { pipeline.Handle(ctx, ev) }
		onReady := func(ctx context.Context) {
			cached := resolver.WarmUp(ctx, filter.Subjects(), tgClient)
			slog.Info("Watched channels warmed up", "cached", cached, "watched", len(filter.Subjects()))
		}
		ingest := func(ctx context.Context) error { return tgClient.Run(ctx, handler, onReady) }
		if err := leadership.Run(ctx, ingest); err != nil {
			slog.Error("Telegram client stopped", "error", err)
			exitCode = 1
		}
	}()

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	<-upstreamDone
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
