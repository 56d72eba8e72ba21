package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	BackendMemory    = "memory"
	BackendDynamoDB  = "dynamodb"
	BackendRedis     = "redis"
	BackendBolt      = "bolt"
	BackendPostgres  = "postgres"
	BackendCouchbase = "couchbase"
	BackendNATS      = "nats"
)

// Config selects and configures exactly one backend.
type Config struct {
	Backend   string
	DynamoDB  DynamoConfig
	Redis     RedisConfig
	Bolt      BoltConfig
	Postgres  PostgresConfig
	Couchbase CouchbaseConfig
	NATS      NATSConfig
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	logger.Info("opening store", zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryRepository(), nil
	case BackendDynamoDB:
		return NewDynamoRepository(ctx, cfg.DynamoDB)
	case BackendRedis:
		return NewRedisRepository(cfg.Redis, logger)
	case BackendBolt:
		return OpenBoltRepository(cfg.Bolt)
	case BackendPostgres:
		return NewPostgresRepository(ctx, cfg.Postgres)
	case BackendCouchbase:
		return NewCouchbaseRepository(cfg.Couchbase, logger)
	case BackendNATS:
		return NewNATSRepository(ctx, cfg.NATS, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
