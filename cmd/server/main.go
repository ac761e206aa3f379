package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-http-utils/etag"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sdnscreen/internal/dataset/cache"
	"sdnscreen/internal/dataset/fetch"
	"sdnscreen/internal/dataset/parse"
	"sdnscreen/internal/platform/config"
	"sdnscreen/internal/platform/httpserver"
	"sdnscreen/internal/platform/logger"
	"sdnscreen/internal/platform/metrics"
	redisplatform "sdnscreen/internal/platform/redis"
	"sdnscreen/internal/ratelimit"
	"sdnscreen/internal/screening"
	"sdnscreen/internal/screening/handler"
)

// main wires high-level dependencies and keeps the server lifecycle
// small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	fetcher, err := fetch.New(context.Background(), cfg.SourceKind, cfg.SourceURL,
		fetch.Options{Timeout: cfg.FetchTimeout})
	if err != nil {
		log.Error("error creating dataset fetcher", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	parser := parse.New(cfg.MaxSkipFraction, log)
	snapshots := cache.New(fetcher, parser, cfg.TTL, cfg.RefreshBackoff,
		cache.WithLogger(log), cache.WithMetrics(m))

	svc, err := screening.New(snapshots, cfg.ResultLimit,
		screening.WithLogger(log), screening.WithMetrics(m))
	if err != nil {
		log.Error("error creating screening service", "error", err)
		os.Exit(1)
	}

	var handlerOpts []handler.Option
	if cfg.RateLimitPerWin > 0 {
		var store ratelimit.Store = ratelimit.NewInMemoryStore()
		if cfg.RedisURL != "" {
			rdb, err := redisplatform.New(cfg.RedisURL)
			if err != nil {
				log.Error("error connecting to redis", "error", err)
				os.Exit(1)
			}
			defer rdb.Close()
			store = ratelimit.NewRedisStore(rdb.Client)
		}
		limiter, err := ratelimit.New(store, cfg.RateLimitPerWin, cfg.RateLimitWindow,
			ratelimit.WithLogger(log), ratelimit.WithMetrics(m))
		if err != nil {
			log.Error("error creating rate limiter", "error", err)
			os.Exit(1)
		}
		handlerOpts = append(handlerOpts, handler.WithRateLimiter(limiter.Middleware))
	}

	router := chi.NewRouter()
	handler.New(svc, log, handlerOpts...).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, etag.Handler(router, false))

	log.Info("starting sdnscreen",
		"addr", cfg.Addr,
		"source", cfg.SourceURL,
		"ttl", cfg.TTL.String(),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
