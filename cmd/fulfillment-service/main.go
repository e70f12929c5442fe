package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/orderflow/fulfillment/internal/config"
	"github.com/orderflow/fulfillment/pkg/inflight"
	"github.com/orderflow/fulfillment/pkg/logging"
	"github.com/orderflow/fulfillment/pkg/outbox"
	"github.com/orderflow/fulfillment/pkg/shutdown"
	"github.com/orderflow/fulfillment/pkg/tracing"

	analyticspg "github.com/orderflow/fulfillment/internal/analytics/postgres"
	"github.com/orderflow/fulfillment/internal/fulfillment/application"
	fulfillhttp "github.com/orderflow/fulfillment/internal/fulfillment/infrastructure/http"
	"github.com/orderflow/fulfillment/internal/fulfillment/infrastructure/observability"
	inventorypg "github.com/orderflow/fulfillment/internal/inventory/infrastructure/postgres"
	notifykafka "github.com/orderflow/fulfillment/internal/notification/kafka"
	orderpg "github.com/orderflow/fulfillment/internal/order/infrastructure/postgres"
	"github.com/orderflow/fulfillment/internal/postgres"
	shipgateway "github.com/orderflow/fulfillment/internal/shipment/infrastructure/gateway"
	shippg "github.com/orderflow/fulfillment/internal/shipment/infrastructure/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()

	writer := notifykafka.NewWriter(cfg.KafkaBrokers)
	defer func() { _ = writer.Close() }()

	// Repositories and collaborators.
	orders := orderpg.NewRepository(log, pool)
	inventory := inventorypg.NewRepository(log, pool, cfg.ReservationTTL)
	gateway := shipgateway.NewClient(log, cfg.ShipmentGatewayURL, cfg.ShipmentTimeout)
	shipments := shippg.NewRepository(log, pool)
	notifier := notifykafka.NewSink(log, writer, cfg.NotificationTopic)
	analytics := analyticspg.NewSink(log, pool)
	emitter := observability.NewEmitter(log)
	locks := inflight.NewRedisLocker(log, rdb, cfg.LockTTL)

	svc := application.NewService(log, orders, inventory, gateway, shipments,
		notifier, analytics, emitter, locks, application.Config{
			ShipmentTimeout: cfg.ShipmentTimeout,
			SinkTimeout:     cfg.SinkTimeout,
		})
	handler := fulfillhttp.NewHandler(log, svc, orders)

	// Outbox relay for analytics events.
	store := analyticspg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.AnalyticsTopic)
	relay := outbox.NewRelay(log, store, dispatch, cfg.ServiceName+"-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("outbox relay stopped with error", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("fulfillment-service shutdown complete")
}
