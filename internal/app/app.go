package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sultanmr/aws-grocery/internal/auth"
	"github.com/sultanmr/aws-grocery/internal/avatar"
	"github.com/sultanmr/aws-grocery/internal/avatar/local"
	"github.com/sultanmr/aws-grocery/internal/avatar/s3store"
	"github.com/sultanmr/aws-grocery/internal/config"
	"github.com/sultanmr/aws-grocery/internal/event"
	handler "github.com/sultanmr/aws-grocery/internal/handler/http"
	"github.com/sultanmr/aws-grocery/internal/repository"
	"github.com/sultanmr/aws-grocery/internal/repository/postgres"
	rediscache "github.com/sultanmr/aws-grocery/internal/repository/redis"
	"github.com/sultanmr/aws-grocery/internal/service"
	"github.com/sultanmr/aws-grocery/migrations"
	"github.com/sultanmr/aws-grocery/pkg/breaker"
	"github.com/sultanmr/aws-grocery/pkg/database"
	"github.com/sultanmr/aws-grocery/pkg/health"
	pkgkafka "github.com/sultanmr/aws-grocery/pkg/kafka"
	"github.com/sultanmr/aws-grocery/pkg/middleware"
	"github.com/sultanmr/aws-grocery/pkg/tracing"
)

const serviceName = "account"

// App wires together all dependencies and runs the account service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
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
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, pool, serviceName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	tracer := database.NewQueryTracer(cfg.SlowQuery(), logger)
	store := postgres.NewStore(pool, tracer)

	// The product cache is optional; the catalog is read directly when
	// Redis is unreachable at startup.
	var products repository.ProductRepository = postgres.NewProductRepository(pool, tracer)
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
	if err != nil {
		logger.Warn("product cache disabled", slog.String("error", err.Error()))
	} else {
		products = rediscache.NewProductCache(redisClient, products, cfg.ProductCacheTTL, logger)
		logger.Info("product cache enabled", slog.String("addr", cfg.Redis().Addr()))
	}

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	backend, err := newAvatarBackend(ctx, cfg, reg, logger)
	if err != nil {
		_ = producer.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		pool.Close()
		return nil, err
	}
	avatars := avatar.NewStorage(backend, avatar.NewNamer(), avatar.Config{
		DefaultName:      cfg.DefaultAvatar,
		LocalDefaultPath: cfg.LocalDefaultAvatarPath(),
		MaxBytes:         cfg.AvatarMaxBytes,
	}, avatar.NewMetrics(reg), logger)

	// Build the dependency graph.
	accountService := service.NewAccountService(
		store,
		products,
		avatars,
		event.NewProducer(producer, logger),
		service.StorageInfo{UseS3: cfg.UseS3Storage, S3Bucket: cfg.S3Bucket, S3Region: cfg.S3Region},
		logger,
	)
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	router := handler.NewRouter(accountService, verifier.Verify, healthHandler, logger, handler.RouterConfig{
		ServiceName:        serviceName,
		CORS:               cors,
		AvatarMaxBytes:     cfg.AvatarMaxBytes,
		AvatarCacheSeconds: cfg.AvatarCacheSeconds,
		Metrics:            middleware.NewHTTPMetrics(reg, serviceName),
		Gatherer:           reg,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newAvatarBackend selects S3 or the local directory. With S3 the credential
// source is probed once here.
func newAvatarBackend(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (avatar.Backend, error) {
	if !cfg.UseS3Storage {
		backend, err := local.New(cfg.AvatarUploadDir)
		if err != nil {
			return nil, fmt.Errorf("init local avatar storage: %w", err)
		}
		logger.Info("avatar storage: local", slog.String("dir", backend.Dir()))
		return backend, nil
	}

	s3cfg := s3store.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3UsePathStyle,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
		Prefix:          s3store.DefaultPrefix,
	}
	strategy := s3store.DetectCredentialStrategy(ctx, s3store.NewMetadataProbe(), cfg.IMDSProbeTimeout)
	client, err := s3store.NewClient(ctx, s3cfg, strategy)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	br := breaker.New(s3store.BreakerConfig(), breaker.NewMetrics(reg), logger)
	logger.Info("avatar storage: s3",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
		slog.String("credentials", strategy.String()),
	)
	return s3store.New(client, s3cfg, br, logger), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in order: HTTP server, tracer, Kafka producer,
// Redis, then the PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans only after in-flight requests have drained.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
