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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slotdex/internal/config"
	"github.com/kailas-cloud/slotdex/internal/db"
	dbRedis "github.com/kailas-cloud/slotdex/internal/db/redis"
	"github.com/kailas-cloud/slotdex/internal/domain"
	"github.com/kailas-cloud/slotdex/internal/domain/embedding"
	logpkg "github.com/kailas-cloud/slotdex/internal/logger"
	"github.com/kailas-cloud/slotdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/slotdex/internal/repository/budget"
	"github.com/kailas-cloud/slotdex/internal/repository/geocache"
	chiTransport "github.com/kailas-cloud/slotdex/internal/transport/chi"
	"github.com/kailas-cloud/slotdex/internal/transport/nominatim"
	openaiKw "github.com/kailas-cloud/slotdex/internal/transport/openai"
	"github.com/kailas-cloud/slotdex/internal/usecase/features"
	healthuc "github.com/kailas-cloud/slotdex/internal/usecase/health"
	"github.com/kailas-cloud/slotdex/internal/usecase/inference"
	"github.com/kailas-cloud/slotdex/internal/usecase/keywords"
	"github.com/kailas-cloud/slotdex/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/slotdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/slotdex/internal/usecase/usage"
	"github.com/kailas-cloud/slotdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting slotdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Bool("geocoding", cfg.Geocoding.Enabled),
		zap.Bool("keywords", cfg.Keywords.Enabled),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEngineMetrics()

	ctx := context.Background()
	healthSvc := healthuc.New().WithModelPath(cfg.Recommend.ModelPath)

	// Optional shared cache store
	var store db.Store
	if cfg.Cache.Driver == "redis" {
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer rs.Close()

		if err := rs.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
		store = rs
		healthSvc.WithStore(rs)
	}

	// Geocoder chain: Nominatim -> Cached. Pass a nil interface (not a typed nil
	// pointer) when geocoding is disabled so features treat every location as unresolved.
	var resolver domain.LocationResolver
	if cfg.Geocoding.Enabled {
		nom := nominatim.New(nominatim.Config{
			BaseURL:         cfg.Geocoding.BaseURL,
			UserAgent:       cfg.Geocoding.UserAgent,
			Timeout:         time.Duration(cfg.Geocoding.TimeoutSec) * time.Second,
			Retries:         cfg.Geocoding.Retries,
			RatePerSec:      cfg.Geocoding.RatePerSec,
			BreakerFailures: uint32(cfg.Geocoding.BreakerFailures), //nolint:gosec // validated positive
			Logger:          logger,
		})
		resolver = buildResolver(nom, store, cfg, logger)
		healthSvc.WithGeocoder(nom)
	}

	// Shared (text, dim) embedding cache for feature extraction
	fx := features.NewExtractor(resolver, embedding.NewCache())

	// Search
	mode := embedding.Advanced
	if !cfg.SearchAdvanced() {
		mode = embedding.CharSum
	}
	searchSvc := searchuc.New(searchuc.Config{
		VectorDim:      cfg.Search.VectorDim,
		Mode:           mode,
		BaseThreshold:  cfg.Search.BaseThreshold,
		MatchThreshold: cfg.Search.MatchThreshold,
		TopK:           cfg.Search.TopK,
	}, logger)
	// Keyword chain: OpenAI -> Instrumented (budget + metrics).
	// usageSvc stays with a nil reader when keywords are disabled.
	usageSvc := usageuc.New(nil)
	if cfg.Keywords.Enabled {
		kw := openaiKw.NewKeywordExtractor(&openaiKw.Config{
			APIKey:  cfg.Keywords.APIKey,
			BaseURL: cfg.Keywords.BaseURL,
			Model:   cfg.Keywords.Model,
			Logger:  logger,
		})
		tracker := keywords.NewBudgetTracker("keywords",
			cfg.Keywords.Budget.DailyTokenLimit,
			cfg.Keywords.Budget.MonthlyTokenLimit,
			keywords.BudgetAction(cfg.Keywords.Budget.Action),
			logger,
		)
		if store != nil {
			tracker.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
		}
		searchSvc.WithKeywordExtractor(keywords.NewInstrumentedExtractor(kw, cfg.Keywords.Model, tracker, logger))
		healthSvc.WithKeywords(kw)
		usageSvc = usageuc.New(tracker)
	}

	// Recommendation: one long-lived trainer for feedback, a fresh recommender per inference
	recCfg := recommend.Config{
		LearningRate:   cfg.Recommend.LearningRate,
		BatchSize:      cfg.Recommend.BatchSize,
		MemoryLimit:    cfg.Recommend.MemoryLimit,
		HiddenDim:      cfg.Recommend.HiddenDim,
		ExplorationStd: cfg.Recommend.ExplorationStd,
		Seed:           cfg.Recommend.Seed,
	}
	trainer, err := recommend.New(recCfg, fx, logger)
	if err != nil {
		logger.Fatal("Failed to create recommender", zap.Error(err))
	}
	if _, err := trainer.Load(cfg.Recommend.ModelPath); err != nil {
		logger.Info("Starting from initialized model weights", zap.Error(err))
	}

	orchestrator := inference.New(func() (inference.SlotRecommender, error) {
		return recommend.New(recCfg, fx, logger)
	}, cfg.Recommend.ModelPath, logger)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, orchestrator, healthSvc, chiTransport.Options{
		Debug:       cfg.Search.Debug,
		DefaultDays: cfg.Recommend.WindowDays,
		ModelPath:   cfg.Recommend.ModelPath,
		MaxBodyMB:   cfg.HTTP.MaxBodyMB,
	}, logger).
		WithTraining(fx, trainer).
		WithUsage(usageSvc)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if trainer.Steps() > 0 {
		if err := trainer.Save(cfg.Recommend.ModelPath); err != nil {
			logger.Error("Failed to checkpoint model", zap.Error(err))
		} else {
			logger.Info("Model checkpointed", zap.String("path", cfg.Recommend.ModelPath))
		}
	}

	logger.Info("Server stopped gracefully")
}

// buildResolver wraps the provider with the memory cache and the optional shared store.
// A nil db.Store converts to a nil store interface, so the cache stays memory-only.
func buildResolver(
	inner domain.Geocoder,
	store db.Store,
	cfg config.Config,
	logger *zap.Logger,
) *geocache.CachedGeocoder {
	return geocache.New(inner, store, metrics.GeocodeCacheTotal, logger).
		WithTTL(time.Duration(cfg.Geocoding.CacheTTLHours) * time.Hour).
		WithKeyPrefix(cfg.Cache.KeyPrefix)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
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
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
