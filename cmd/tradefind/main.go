package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/config"
	dbRedis "github.com/tradefind/tradefind/internal/db/redis"
	"github.com/tradefind/tradefind/internal/domain"
	logpkg "github.com/tradefind/tradefind/internal/logger"
	"github.com/tradefind/tradefind/internal/metrics"
	"github.com/tradefind/tradefind/internal/postgres"
	cacherepo "github.com/tradefind/tradefind/internal/repository/cache"
	contractorrepo "github.com/tradefind/tradefind/internal/repository/contractor"
	vectorrepo "github.com/tradefind/tradefind/internal/repository/vector"
	chiTransport "github.com/tradefind/tradefind/internal/transport/chi"
	openaiTransport "github.com/tradefind/tradefind/internal/transport/openai"
	healthuc "github.com/tradefind/tradefind/internal/usecase/health"
	searchuc "github.com/tradefind/tradefind/internal/usecase/search"
	synthuc "github.com/tradefind/tradefind/internal/usecase/synth"
	syncuc "github.com/tradefind/tradefind/internal/usecase/sync"
	"github.com/tradefind/tradefind/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tradefind API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	ctx := context.Background()

	// Contractor database is the hard dependency.
	pool, err := postgres.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to contractor database", zap.Error(err))
	}
	defer pool.Close()

	// The cache store is optional: without it every cache read is a miss.
	var cacheStore *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
			// Not fatal: cache operations degrade per call.
			logger.Warn("Cache store not ready, continuing without warm cache", zap.Error(err))
		} else {
			logger.Info("Connected to cache store")
		}
	} else {
		logger.Warn("No cache store configured, running uncached")
	}

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	var generator domain.AnswerGenerator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Logger:  logger,
	})
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_model", cfg.Generation.Model),
	)

	// Repositories
	contractorRepo := contractorrepo.New(pool)
	vectorRepo := vectorrepo.New(pool, cfg.Embedding.Dimensions, logger)
	cacheCfg := cacherepo.Config{
		KeyPrefix:  cfg.Cache.KeyPrefix,
		DefaultTTL: time.Duration(cfg.Cache.DefaultTTLSec) * time.Second,
	}
	// Pass nil interface (not typed nil pointer!) when no cache store exists.
	resultCache := cacherepo.New(nil, cacheCfg, metrics.SearchCacheTotal, logger)
	if cacheStore != nil {
		resultCache = cacherepo.New(cacheStore, cacheCfg, metrics.SearchCacheTotal, logger)
	}

	// Use case services
	synthSvc := synthuc.New(generator, logger)
	searchSvc := searchuc.New(contractorRepo, vectorRepo, embedder, synthSvc, resultCache, searchuc.Config{
		TopK:           cfg.Search.TopK,
		ScoreThreshold: cfg.Search.ScoreThreshold,
	}, logger)
	syncSvc := syncuc.New(contractorRepo, vectorRepo, embedder, resultCache, cfg.Embedding.Dimensions, logger)

	var cachePinger healthuc.CachePinger
	if cacheStore != nil {
		cachePinger = cacheStore
	}
	var embedChecker healthuc.EmbeddingPinger
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embedChecker = hc
	}
	healthSvc := healthuc.New(pool, cachePinger, embedChecker, contractorRepo)

	server := chiTransport.NewServer(searchSvc, syncSvc, healthSvc, resultCache, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
