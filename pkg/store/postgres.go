package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

// PostgresRepository keeps items in the items table created by the embedded migrations.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository runs pending migrations and opens a connection pool.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	if err := RunMigrations(ctx, cfg.DSN); err != nil {
		return nil, unavailable("postgres migrate", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, unavailable("postgres create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("postgres ping", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// RunMigrations applies all pending goose migrations from the embedded SQL files.
func RunMigrations(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (repository *PostgresRepository) GetItem(ctx context.Context, key string) (*Item, error) {
	var (
		item Item
		ttl  *int64
	)
	err := repository.pool.QueryRow(ctx,
		`SELECT key, value, ttl FROM items WHERE key = $1`, key,
	).Scan(&item.Key, &item.Value, &ttl)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("postgres get", err)
	}
	if ttl != nil {
		item.TTL = *ttl
	}
	return &item, nil
}

func (repository *PostgresRepository) PutItem(ctx context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var ttlParam *int64
	if ttl > 0 {
		ttlParam = &ttl
	}

	_, err := repository.pool.Exec(ctx,
		`INSERT INTO items (key, value, ttl) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, ttl = EXCLUDED.ttl`,
		key, value, ttlParam)
	if err != nil {
		return nil, unavailable("postgres put", err)
	}
	return &Item{Key: key, Value: value, TTL: ttl}, nil
}

func (repository *PostgresRepository) DeleteItem(ctx context.Context, key string) error {
	if _, err := repository.pool.Exec(ctx, `DELETE FROM items WHERE key = $1`, key); err != nil {
		return unavailable("postgres delete", err)
	}
	return nil
}

func (repository *PostgresRepository) Close() error {
	repository.pool.Close()
	return nil
}
