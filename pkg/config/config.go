// Package config loads process configuration once at startup from the
// environment and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zeriontech/codestore/pkg/logger"
	"github.com/zeriontech/codestore/pkg/store"
	"github.com/zeriontech/codestore/pkg/ttl"
)

type Config struct {
	Port            string
	Environment     string
	APIKey          string
	AuthDisabled    bool
	ShutdownTimeout time.Duration
	TTL             ttl.Config
	Log             logger.Config
	Store           store.Config
}

// Keys map one to one onto upper-cased environment variables, with dots
// replaced by underscores (store.backend -> STORE_BACKEND).
var defaults = map[string]interface{}{
	"port":               "9191",
	"app_env":            "development",
	"default_ttl":        "86400",
	"ttl_enabled":        "true",
	"api_key":            "",
	"disable_auth_check": false,
	"shutdown_timeout":   "10s",
	"log.level":          "",
	"log.format":         "json",
	"log.output":         "stdout",
	"log.file":           "",
	"store.backend":      store.BackendDynamoDB,
	"aws_region":         "ap-northeast-1",
	"table_name":         "KeyValueStore",
	"dynamodb_endpoint":  "",
	"redis.addr":         "127.0.0.1:6379",
	"redis.password":     "",
	"redis.db":           0,
	"bolt.path":          "codestore.db",
	"bolt.bucket":        "items",
	"postgres.dsn":       "",
	"postgres.max_conns": 4,
	"couchbase.host":     "",
	"couchbase.username": "",
	"couchbase.password": "",
	"couchbase.bucket":   "",
	"nats.url":           "nats://127.0.0.1:4222",
	"nats.bucket":        "codestore",
	"nats.max_age":       "0s",
}

// Load reads the configuration. CONFIG_PATH may name a YAML file whose values
// are overridden by the environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	natsMaxAge, err := time.ParseDuration(v.GetString("nats.max_age"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_MAX_AGE: %w", err)
	}

	environment := v.GetString("app_env")

	return &Config{
		Port:            v.GetString("port"),
		Environment:     environment,
		APIKey:          v.GetString("api_key"),
		AuthDisabled:    v.GetBool("disable_auth_check"),
		ShutdownTimeout: shutdownTimeout,
		TTL:             ttl.ParseConfig(v.GetString("default_ttl"), v.GetString("ttl_enabled")),
		Log: logger.Config{
			Level:       v.GetString("log.level"),
			Format:      v.GetString("log.format"),
			Output:      v.GetString("log.output"),
			FilePath:    v.GetString("log.file"),
			Environment: environment,
			Development: environment == "development",
		},
		Store: store.Config{
			Backend: strings.ToLower(v.GetString("store.backend")),
			DynamoDB: store.DynamoConfig{
				Region:   v.GetString("aws_region"),
				Table:    v.GetString("table_name"),
				Endpoint: v.GetString("dynamodb_endpoint"),
			},
			Redis: store.RedisConfig{
				Addr:     v.GetString("redis.addr"),
				Password: v.GetString("redis.password"),
				DB:       v.GetInt("redis.db"),
			},
			Bolt: store.BoltConfig{
				Path:   v.GetString("bolt.path"),
				Bucket: v.GetString("bolt.bucket"),
			},
			Postgres: store.PostgresConfig{
				DSN:      v.GetString("postgres.dsn"),
				MaxConns: v.GetInt32("postgres.max_conns"),
			},
			Couchbase: store.CouchbaseConfig{
				Host:     v.GetString("couchbase.host"),
				Username: v.GetString("couchbase.username"),
				Password: v.GetString("couchbase.password"),
				Bucket:   v.GetString("couchbase.bucket"),
			},
			NATS: store.NATSConfig{
				URL:    v.GetString("nats.url"),
				Bucket: v.GetString("nats.bucket"),
				MaxAge: natsMaxAge,
			},
		},
	}, nil
}
