package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend implements Backend using PostgreSQL
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresBackend creates a new PostgreSQL backend
func NewPostgresBackend(ctx context.Context, cfg PostgresConfig) (*PostgresBackend, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 1
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresBackend{pool: pool}, nil
}

// Migrate applies pending schema migrations
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, b.pool, Migrations)
}

// For returns the store of profileID
func (b *PostgresBackend) For(profileID string) Store {
	return &postgresStore{pool: b.pool, profile: profileID}
}

// Clear deletes every preference row of a profile
func (b *PostgresBackend) Clear(ctx context.Context, profileID string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM profile_preferences WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to clear preferences: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Close closes the database connection pool
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

type postgresStore struct {
	pool    *pgxpool.Pool
	profile string
}

func (s *postgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	query := `
		SELECT value
		FROM profile_preferences
		WHERE profile_id = $1 AND key = $2
	`

	var value string
	err := s.pool.QueryRow(ctx, query, s.profile, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get preference: %w", err)
	}
	return value, true, nil
}

func (s *postgresStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	query := `
		INSERT INTO profile_preferences (profile_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, s.profile, key, value); err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	return nil
}
