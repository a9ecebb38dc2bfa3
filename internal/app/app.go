package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/babo/internal/config"
	"github.com/utafrali/babo/internal/event"
	handler "github.com/utafrali/babo/internal/handler/http"
	"github.com/utafrali/babo/internal/repository"
	"github.com/utafrali/babo/internal/repository/memory"
	"github.com/utafrali/babo/internal/repository/redis"
	"github.com/utafrali/babo/internal/service"
	"github.com/utafrali/babo/internal/transport/httpapi"
	"github.com/utafrali/babo/pkg/database"
	"github.com/utafrali/babo/pkg/health"
	"github.com/utafrali/babo/pkg/httpclient"
	pkgkafka "github.com/utafrali/babo/pkg/kafka"
	"github.com/utafrali/babo/pkg/middleware"
	"github.com/utafrali/babo/pkg/tracing"
)

const serviceName = "babo-agent"

// App wires together all dependencies and runs the babo agent.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	sessions       *service.RecommendationService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	// stop ends background loops started for the app's lifetime.
	stop context.CancelFunc
	bg   context.Context
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}
	a.bg, a.stop = context.WithCancel(context.Background())

	healthHandler := health.NewHandler()

	// Breakdown store.
	var store repository.BreakdownStore
	switch cfg.BreakdownStore {
	case config.StoreRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB
		redisCfg.SlowThreshold = time.Duration(cfg.SlowQueryThresholdMs) * time.Millisecond
		client, err := database.NewRedisClient(ctx, redisCfg, logger)
		if err != nil {
			a.stop()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
		a.redis = client
		store = redis.NewBreakdownStore(client)
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	default:
		store = memory.NewBreakdownStore()
		logger.Info("using in-memory breakdown store")
	}

	// Kafka events are optional; without brokers nothing is published.
	var events service.EventPublisher
	if cfg.EventsEnabled() {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(event.SourceAgent, cfg.KafkaBrokers), logger)
		a.producer = producer
		events = event.NewProducer(producer, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// HTTP client with circuit breaker for the upstream service.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.UpstreamTimeout,
		MaxRetries:      cfg.UpstreamRetries,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 20,
	})
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "babo-upstream",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
		WithFallback(httpapi.CircuitOpenFallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.String("upstream", cfg.UpstreamURL),
		slog.Int("timeout_seconds", cfg.CBTimeout),
	)
	healthHandler.RegisterNonCritical("upstream", func(context.Context) error {
		if cbClient.State() == gobreaker.StateOpen {
			return fmt.Errorf("circuit %s is open", cbClient.Name())
		}
		return nil
	})

	// Build the dependency graph.
	transport := httpapi.New(cbClient, cfg.UpstreamURL, logger)
	ratingService := service.NewRatingService(transport, store, events, logger)
	batches := service.NewBatchSubmitter(events, logger)
	a.sessions = service.NewRecommendationService(transport, batches, cfg.SessionTTL, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	routerCfg := handler.RouterConfig{
		ServiceName:           serviceName,
		RatingService:         ratingService,
		RecommendationService: a.sessions,
		Health:                healthHandler,
		CORS:                  corsCfg,
		PprofCIDRs:            cfg.PprofAllowedCIDRs,
		Logger:                logger,
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.RateLimit = middleware.RateLimit(a.bg, cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.NewRouter(routerCfg),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.sessions.Run(a.bg)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests and batches)
// 2. Background loops (session expiry, rate limiter cleanup)
// 3. Tracer (flush pending spans)
// 4. Kafka producer
// 5. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.stop()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
