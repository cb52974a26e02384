package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gateway/handlers"
	"github.com/gogotex/gateway/internal/config"
	"github.com/gogotex/gateway/internal/counter"
	"github.com/gogotex/gateway/internal/search"
	"github.com/gogotex/gateway/pkg/logger"
	"github.com/gogotex/gateway/pkg/metrics"
	"github.com/gogotex/gateway/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var startTime = time.Now()

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)
	if cfg.Log.Format == "console" {
		logger.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	// Both clients connect lazily, so the gateway starts even when a backend is down.
	redisClient, err := counter.NewClient(cfg.Redis.URL, cfg.Redis.Timeout)
	if err != nil {
		logger.Fatalf("invalid REDIS_URL: %v", err)
	}
	defer func() { _ = redisClient.Close() }()
	logger.Infof("config loaded: redis=%s elasticsearch=%v timeout=%s retries=%d",
		redisClient.Options().Addr, cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Timeout, cfg.Elasticsearch.MaxRetries)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warnf("redis not reachable at startup (%s): %v", redisClient.Options().Addr, err)
	}
	cancel()

	es, err := search.NewClient(search.Config{
		Addresses:  cfg.Elasticsearch.Addresses,
		Timeout:    cfg.Elasticsearch.Timeout,
		MaxRetries: cfg.Elasticsearch.MaxRetries,
	})
	if err != nil {
		logger.Fatalf("failed to create elasticsearch client: %v", err)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
			logger.Infof("rate limiter enabled (redis, %.1f rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			logger.Infof("rate limiter enabled (memory, %.1f rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	handlers.Register(r, handlers.Deps{
		Counter:   counter.NewStore(redisClient, cfg.Redis.CounterKey),
		Search:    es,
		StartedAt: startTime,
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting gateway on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infof("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
