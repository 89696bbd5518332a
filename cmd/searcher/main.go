package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/resilience"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	var built atomic.Pointer[relevance.Engine]
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		engine := built.Load()
		if engine == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "engine not built"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", engine.Len())}
	})

	// Health endpoints are served while the corpus loads so orchestrators see a live
	// but not-ready instance.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.RunPruner(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	if len(cfg.Server.AllowOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.AllowOrigins)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	engine, err := corpus.BuildEngine(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to build relevance engine", "error", err)
		os.Exit(1)
	}
	built.Store(engine)

	exec, err := executor.New(engine, ranker.Weights{
		Relevance: cfg.Search.RelevanceWeight,
		Rank:      cfg.Search.RankWeight,
	}, cfg.Rank.Workers)
	if err != nil {
		slog.Error("failed to create query executor", "error", err)
		os.Exit(1)
	}

	queryCache, closeCache := setupCache(ctx, cfg, m, checker)
	defer closeCache()

	handler.New(exec, engine, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults).Register(mux)
	checker.SetReady(true)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}
	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("search service stopped")
}

// setupCache connects to Redis when enabled. Without Redis the service runs
// uncached and reports the dependency as degraded.
func setupCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (*cache.QueryCache, func()) {
	if !cfg.Redis.Enabled {
		return nil, func() {}
	}
	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		checker.RegisterOptional("redis", func(context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDown, Message: "not connected"}
		})
		return nil, func() {}
	}
	checker.RegisterOptional("redis", func(ctx context.Context) health.ComponentHealth {
		if err := client.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(_ string, to resilience.State) {
			m.CacheCircuitState.Set(float64(to))
		},
	})
	store := cache.NewGuardedStore(client, breaker, 200*time.Millisecond)
	slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return cache.New(store, cfg.Redis.CacheTTL, m), func() { client.Close() }
}
