package store

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"gopkg.in/couchbase/gocb.v1"
)

type CouchbaseConfig struct {
	Host     string
	Username string
	Password string
	Bucket   string
}

// CouchbaseRepository stores items as JSON documents. Couchbase reads an
// expiry above thirty days as an absolute Unix time, so the item's ttl is
// passed through unchanged and the server evicts the document itself.
type CouchbaseRepository struct {
	cluster *gocb.Cluster
	bucket  *gocb.Bucket
	logger  *zap.Logger
}

func NewCouchbaseRepository(cfg CouchbaseConfig, logger *zap.Logger) (*CouchbaseRepository, error) {
	cluster, err := gocb.Connect("couchbase://" + cfg.Host)
	if err != nil {
		return nil, unavailable("couchbase connect", err)
	}

	err = cluster.Authenticate(gocb.PasswordAuthenticator{
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		_ = cluster.Close()
		return nil, unavailable("couchbase authenticate", err)
	}

	bucket, err := cluster.OpenBucket(cfg.Bucket, "")
	if err != nil {
		_ = cluster.Close()
		return nil, unavailable("couchbase open bucket", err)
	}

	logger.Info("couchbase bucket opened", zap.String("host", cfg.Host), zap.String("bucket", cfg.Bucket))
	return &CouchbaseRepository{cluster: cluster, bucket: bucket, logger: logger}, nil
}

func (repository *CouchbaseRepository) GetItem(_ context.Context, key string) (*Item, error) {
	var item Item
	_, err := repository.bucket.Get(key, &item)
	if gocb.IsKeyNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("couchbase get", err)
	}
	return &item, nil
}

func (repository *CouchbaseRepository) PutItem(_ context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	item := Item{Key: key, Value: value, TTL: ttl}
	if _, err := repository.bucket.Upsert(key, item, couchbaseExpiry(ttl)); err != nil {
		return nil, unavailable("couchbase upsert", err)
	}
	return &item, nil
}

func (repository *CouchbaseRepository) DeleteItem(_ context.Context, key string) error {
	_, err := repository.bucket.Remove(key, 0)
	if err != nil && !gocb.IsKeyNotFoundError(err) {
		return unavailable("couchbase remove", err)
	}
	return nil
}

func (repository *CouchbaseRepository) Close() error {
	bucketErr := repository.bucket.Close()
	if err := repository.cluster.Close(); err != nil {
		return errors.Join(bucketErr, err)
	}
	return bucketErr
}

// couchbaseExpiry returns 0 (no server eviction) for a ttl that does not fit
// the 32 bit expiry field.
func couchbaseExpiry(ttl int64) uint32 {
	if ttl <= 0 || ttl > math.MaxUint32 {
		return 0
	}
	return uint32(ttl)
}
