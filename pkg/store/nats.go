package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

type NATSConfig struct {
	URL    string
	Bucket string
	// MaxAge bounds how long any entry lives in the bucket. Zero keeps entries forever.
	MaxAge time.Duration
}

// NATSRepository stores items in a JetStream key-value bucket. JetStream
// restricts key characters, so keys are base64url encoded on the wire.
type NATSRepository struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

func NewNATSRepository(ctx context.Context, cfg NATSConfig, logger *zap.Logger) (*NATSRepository, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, unavailable("nats connect", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, unavailable("jetstream init", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: cfg.Bucket,
		TTL:    cfg.MaxAge,
	})
	if err != nil {
		nc.Close()
		return nil, unavailable("jetstream kv create", err)
	}

	logger.Info("nats kv bucket ready", zap.String("url", cfg.URL), zap.String("bucket", cfg.Bucket))
	return &NATSRepository{nc: nc, kv: kv}, nil
}

func NewNATSRepositoryWithKV(kv jetstream.KeyValue) *NATSRepository {
	return &NATSRepository{kv: kv}
}

func (repository *NATSRepository) GetItem(ctx context.Context, key string) (*Item, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	entry, err := repository.kv.Get(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("nats kv get", err)
	}

	var item Item
	if err := json.Unmarshal(entry.Value(), &item); err != nil {
		return nil, unavailable("nats kv decode", err)
	}
	return &item, nil
}

func (repository *NATSRepository) PutItem(ctx context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	item := Item{Key: key, Value: value, TTL: ttl}
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, unavailable("nats kv encode", err)
	}

	if _, err := repository.kv.Put(ctx, natsKey(key), payload); err != nil {
		return nil, unavailable("nats kv put", err)
	}
	return &item, nil
}

func (repository *NATSRepository) DeleteItem(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	err := repository.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return unavailable("nats kv delete", err)
	}
	return nil
}

func (repository *NATSRepository) Close() error {
	if repository.nc != nil {
		repository.nc.Close()
	}
	return nil
}

func natsKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
