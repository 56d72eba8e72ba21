package store

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-redis/redis"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisRepository stores each item as a JSON string. The key expires in
// Redis one second after the item's ttl so lazy expiry still decides first.
type RedisRepository struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewRedisRepository(cfg RedisConfig, logger *zap.Logger) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, unavailable("redis ping", err)
	}

	return NewRedisRepositoryWithClient(client, logger), nil
}

func NewRedisRepositoryWithClient(client *redis.Client, logger *zap.Logger) *RedisRepository {
	return &RedisRepository{client: client, logger: logger, now: time.Now}
}

func (repository *RedisRepository) GetItem(ctx context.Context, key string) (*Item, error) {
	payload, err := repository.client.WithContext(ctx).Get(key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("redis get", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		repository.logger.Error("corrupt redis payload", zap.String("key", key), zap.Error(err))
		return nil, unavailable("redis decode", err)
	}
	return &item, nil
}

func (repository *RedisRepository) PutItem(ctx context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	item := Item{Key: key, Value: value, TTL: ttl}
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, unavailable("redis encode", err)
	}

	expiration := redisExpiration(ttl, repository.now())
	if err := repository.client.WithContext(ctx).Set(key, payload, expiration).Err(); err != nil {
		return nil, unavailable("redis set", err)
	}
	return &item, nil
}

func (repository *RedisRepository) DeleteItem(ctx context.Context, key string) error {
	if err := repository.client.WithContext(ctx).Del(key).Err(); err != nil {
		return unavailable("redis del", err)
	}
	return nil
}

func (repository *RedisRepository) Close() error {
	return repository.client.Close()
}

// maxRedisSeconds is the largest relative expiry, in whole seconds, that
// still fits a time.Duration once the extra second is added.
const maxRedisSeconds = int64(math.MaxInt64/int64(time.Second)) - 2

// redisExpiration converts an absolute ttl to the relative expiration Redis
// expects. Zero ttl keeps the key forever, and so does a ttl too far out to
// express as a Duration; lazy expiry still applies to those.
func redisExpiration(ttl int64, now time.Time) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if ttl-now.Unix() > maxRedisSeconds {
		return 0
	}
	expiration := time.Unix(ttl, 0).Sub(now) + time.Second
	if expiration < time.Second {
		return time.Second
	}
	return expiration
}
