package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "moviesvault/catalog/internal/api/http"
	"moviesvault/catalog/internal/app"
	"moviesvault/catalog/internal/catalog"
	"moviesvault/catalog/internal/metrics"
	"moviesvault/catalog/internal/providers/backend"
	"moviesvault/catalog/internal/session"
	"moviesvault/catalog/internal/telemetry"
)

const serviceName = "moviesvault-catalog"

func main() {
	cfg := app.LoadConfig()
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("catalog service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg app.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register(prometheus.DefaultRegisterer)
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampling,
	})
	if err != nil {
		logger.Warn("tracing disabled", slog.String("error", err.Error()))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	logger.Info("starting catalog service",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("upstream", cfg.UpstreamBaseURL),
		slog.Duration("upstreamTimeout", cfg.UpstreamTimeout),
		slog.String("logLevel", cfg.LogLevel),
		slog.Bool("staticToken", cfg.StaticToken != ""),
		slog.Bool("sessionStore", cfg.RedisURL != ""),
		slog.Float64("rateLimitRPS", cfg.RateLimitRPS),
		slog.Int("rateLimitBurst", cfg.RateLimitBurst),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           buildHandler(ctx, cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       time.Minute,
	}
	return serve(ctx, server, logger)
}

func buildHandler(ctx context.Context, cfg app.Config, logger *slog.Logger) http.Handler {
	tracedTransport := otelhttp.NewTransport(http.DefaultTransport)
	upstream := backend.NewClient(backend.Config{
		BaseURL:   cfg.UpstreamBaseURL,
		Client:    &http.Client{Timeout: cfg.UpstreamTimeout, Transport: tracedTransport},
		UserAgent: cfg.UserAgent,
		Tokens:    session.ContextTokens{Fallback: cfg.StaticToken},
		Logger:    logger,
	})

	opts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithMovieDirectory(upstream),
		apihttp.WithWatchlist(upstream),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apihttp.WithImageClient(&http.Client{Timeout: 12 * time.Second, Transport: tracedTransport}),
	}
	if store := connectSessionStore(ctx, cfg.RedisURL, logger); store != nil {
		opts = append(opts, apihttp.WithSessions(store, cfg.SessionCookie))
	}
	return apihttp.NewServer(catalog.NewService(upstream, catalog.WithLogger(logger)), opts...).Handler()
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	failed := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("catalog service stopped")
	return nil
}

func buildLogger(cfg app.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func logLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		if strings.EqualFold(name, "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return level
}

// connectSessionStore returns nil when Redis is not configured or unreachable.
// Requests then rely on Authorization headers and the static token.
func connectSessionStore(ctx context.Context, rawURL string, logger *slog.Logger) *session.RedisStore {
	if rawURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		logger.Warn("session store disabled", slog.String("reason", "invalid redis url"), slog.String("error", err.Error()))
		return nil
	}
	store := session.NewRedisStore(redis.NewClient(opts), "")
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("session store disabled", slog.String("reason", "redis unreachable"), slog.String("error", err.Error()))
		return nil
	}
	logger.Info("session store connected", slog.String("addr", opts.Addr))
	return store
}
