//go:build integration

package integration

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	pg "github.com/orderflow/fulfillment/internal/postgres"
)

type Env struct {
	PG         *postgres.PostgresContainer
	Kafka      *kafka.KafkaContainer
	Pool       *pgxpool.Pool
	PGURL      string
	KafkaAddrs []string
	cancel     context.CancelFunc
}

// Setup starts postgres and kafka containers and applies the service schema.
func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fulfillment"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		return nil, err
	}

	pool, err := pg.Connect(ctx, pgURL)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := pg.Migrate(ctx, pool); err != nil {
		cancel()
		return nil, err
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("fulfillment-test"),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	brokers, err := kafkaC.Brokers(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Env{
		PG:         pgC,
		Kafka:      kafkaC,
		Pool:       pool,
		PGURL:      pgURL,
		KafkaAddrs: brokers,
		cancel:     cancel,
	}, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
	e.cancel()
}
