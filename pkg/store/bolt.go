package store

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

type BoltConfig struct {
	Path   string
	Bucket string
}

// BoltRepository persists items as JSON values in a single bbolt bucket.
// bbolt has no eviction; expired items stay on disk until overwritten or deleted.
type BoltRepository struct {
	db     *bolt.DB
	bucket []byte
}

func OpenBoltRepository(cfg BoltConfig) (*BoltRepository, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, unavailable("bolt open", err)
	}

	bucket := []byte("items")
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, unavailable("bolt create bucket", err)
	}

	return &BoltRepository{db: db, bucket: bucket}, nil
}

func (repository *BoltRepository) GetItem(_ context.Context, key string) (*Item, error) {
	var payload []byte
	if err := repository.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(repository.bucket).Get([]byte(key)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, unavailable("bolt view", err)
	}
	if payload == nil {
		return nil, ErrNotFound
	}

	var item Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, unavailable("bolt decode", err)
	}
	return &item, nil
}

func (repository *BoltRepository) PutItem(_ context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	item := Item{Key: key, Value: value, TTL: ttl}
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, unavailable("bolt encode", err)
	}

	if err := repository.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(repository.bucket).Put([]byte(key), payload)
	}); err != nil {
		return nil, unavailable("bolt put", err)
	}
	return &item, nil
}

func (repository *BoltRepository) DeleteItem(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := repository.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(repository.bucket).Delete([]byte(key))
	}); err != nil {
		return unavailable("bolt delete", err)
	}
	return nil
}

func (repository *BoltRepository) Close() error {
	if repository == nil || repository.db == nil {
		return nil
	}
	return repository.db.Close()
}
