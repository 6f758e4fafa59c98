package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/storefront/internal/api"
	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/checkout"
	"github.com/joao-fontenele/storefront/internal/config"
	"github.com/joao-fontenele/storefront/internal/idempotency"
	"github.com/joao-fontenele/storefront/internal/messaging"
	"github.com/joao-fontenele/storefront/internal/orders"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

const serviceName = "storefront"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db := mustOpenDB(ctx, logger, cfg.PostgresURL, cfg.DBSchema)
	defer func() { _ = db.Close() }()

	serviceDB := mustOpenDB(ctx, logger, cfg.PostgresServiceURL, cfg.DBSchema)
	defer func() { _ = serviceDB.Close() }()

	catalogRepo := catalog.NewRepository(db)
	deps := checkout.Deps{
		Catalog:        catalogRepo,
		Discounts:      catalogRepo,
		Statuses:       catalogRepo,
		PaymentMethods: catalogRepo,
		Store:          orders.NewStore(serviceDB),
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.OrderPlacedTopic, "order.placed.v1")
		defer func() { _ = producer.Close() }()
		deps.Events = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order placed events are disabled")
	}

	engine, err := checkout.NewEngine(deps, logger)
	if err != nil {
		logger.Error("failed to create checkout engine", "error", err)
		os.Exit(1)
	}

	var idem checkout.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		idem = idempotency.NewRedisStore(redisClient, cfg.IdempotencyTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, checkout idempotency keys are ignored")
	}

	cartRepo := cart.NewRepository(db)
	router := api.NewRouter(api.Handlers{
		Checkout: checkout.NewHandler(engine, idem, logger),
		Cart:     cart.NewHandler(cartRepo, cart.NewQuoter(catalogRepo, catalogRepo), logger),
		Orders:   orders.NewHandler(orders.NewOrderRepository(db), logger),
		Catalog:  catalog.NewHandler(catalogRepo, logger),
		Metrics:  metricsHandler,
	}, logger)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(router, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func mustOpenDB(ctx context.Context, logger *slog.Logger, dsn, schema string) *sql.DB {
	db, err := telemetry.OpenDB(dsn, schema)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db
}
