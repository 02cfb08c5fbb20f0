package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
)

// DB is the subset of *pgxpool.Pool used by PostgresCache.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshot_cache (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// PostgresCache is a SnapshotCache shared between processes through PostgreSQL.
type PostgresCache struct {
	db  DB
	now func() time.Time
}

// NewPostgresCache creates a PostgreSQL-backed cache. A nil clock uses time.Now.
func NewPostgresCache(db DB, now func() time.Time) *PostgresCache {
	if now == nil {
		now = time.Now
	}
	return &PostgresCache{db: db, now: now}
}

// EnsureSchema creates the cache table if it does not exist.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create snapshot_cache table: %w", err)
	}
	return nil
}

// Get returns the unexpired snapshot stored under key.
func (c *PostgresCache) Get(ctx context.Context, key string) (*airquality.Snapshot, error) {
	query := `
		SELECT payload
		FROM snapshot_cache
		WHERE key = $1 AND expires_at > $2
	`

	var payload []byte
	err := c.db.QueryRow(ctx, query, key, c.now().UTC()).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("read snapshot %q: %w", key, err)
	}

	var snap airquality.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", key, err)
	}
	return &snap, nil
}

// Put upserts snap under key.
func (c *PostgresCache) Put(ctx context.Context, key string, snap *airquality.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", key, err)
	}

	query := `
		INSERT INTO snapshot_cache (key, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`

	if _, err := c.db.Exec(ctx, query, key, payload, c.now().Add(ttl).UTC()); err != nil {
		return fmt.Errorf("write snapshot %q: %w", key, err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (c *PostgresCache) Purge(ctx context.Context) (int64, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM snapshot_cache WHERE expires_at <= $1`, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge snapshot_cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Backend implements SnapshotCache.
func (c *PostgresCache) Backend() string {
	return "postgres"
}
