package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"eidgate/internal/platform/config"
	"eidgate/internal/platform/redis"
	audit "eidgate/pkg/platform/audit"
	kafkastore "eidgate/pkg/platform/audit/store/kafka"
	"eidgate/pkg/platform/audit/store/memory"
	pgstore "eidgate/pkg/platform/audit/store/postgres"
	redisstore "eidgate/pkg/platform/audit/store/redis"
)

// auditBackend is the configured audit store plus its connection lifecycle.
// run, when set, is a maintenance loop that lives as long as the daemon.
type auditBackend struct {
	store  audit.Store
	health func(context.Context) error
	run    func(context.Context) error
	close  func()
}

func openAuditBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*auditBackend, error) {
	healthy := func(context.Context) error { return nil }

	switch cfg.Audit.Backend {
	case config.AuditRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &auditBackend{
			store:  redisstore.New(client.Client, redisstore.WithRetention(cfg.Redis.Retention)),
			health: client.Health,
			close:  func() { _ = client.Close() },
		}, nil

	case config.AuditPostgres:
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := pgstore.New(db)
		if err := store.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &auditBackend{
			store:  store,
			health: db.PingContext,
			run: func(ctx context.Context) error {
				return store.RunCleanup(ctx, cfg.Postgres.CleanupInterval, cfg.Postgres.Retention, logger)
			},
			close: func() { _ = db.Close() },
		}, nil

	case config.AuditKafka:
		client, err := kafkastore.NewClient(cfg.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		if err := kafkastore.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1, 1); err != nil {
			logger.Warn("could not ensure audit topic, relying on broker auto-creation",
				"topic", cfg.Kafka.Topic,
				"error", err,
			)
		}
		return &auditBackend{
			store:  kafkastore.New(client, cfg.Kafka.Topic),
			health: client.Ping,
			close:  client.Close,
		}, nil

	default:
		return &auditBackend{
			store:  memory.NewInMemoryStore(),
			health: healthy,
			close:  func() {},
		}, nil
	}
}
