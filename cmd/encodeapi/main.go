package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/api/cache"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/store"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting encode api", "port", cfg.Server.Port, "language", cfg.Encoder.Language)

	stopwords, err := tokenizer.LoadStopwords(cfg.Encoder.StopwordsPath, slog.Default())
	if err != nil {
		slog.Error("failed to load stopwords", "error", err)
		os.Exit(1)
	}
	opts, err := encoder.OptionsFromConfig(cfg.Encoder, stopwords)
	if err != nil {
		slog.Error("invalid encoder config", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		opts.Metrics = m
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdown(context.Background())
	}

	registry, err := encoder.NewRegistry(opts)
	if err != nil {
		slog.Error("failed to create encoder", "error", err)
		os.Exit(1)
	}

	var encodeCache *cache.EncodeCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, encode caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		encodeCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		slog.Info("encode cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var corpus handler.CorpusStatsSource
	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, corpus statistics disabled", "error", err)
	} else {
		defer pg.Close()
		corpus = store.New(pg.DB)
	}

	checker := health.NewChecker()
	checker.Register("encoder", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d engines, default %s", registry.Len(), registry.DefaultKey()),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.PingCheck(redisClient.Ping, health.StatusDegraded)(ctx)
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pg == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.PingCheck(pg.Ping, health.StatusDegraded)(ctx)
	})

	h := handler.New(registry, encodeCache, corpus, cfg.Encoder.MaxTextBytes, cfg.Server.WriteTimeout)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, time.Minute)
		defer limiter.Close()
		chain = middleware.RateLimit(limiter)(chain)
		slog.Info("rate limiting enabled", "requests_per_minute", cfg.Server.RateLimit)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("encode api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("encode api stopped")
}
