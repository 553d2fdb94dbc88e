package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cidadao-ativo/cidadao-api/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// SnapshotStore keeps the last good listing per query key across restarts.
// It holds upstream data only.
type SnapshotStore interface {
	Save(ctx context.Context, key string, e Entry) error
	Load(ctx context.Context, key string) (Entry, bool, error)
}

// NopSnapshotStore stores nothing.
type NopSnapshotStore struct{}

func (NopSnapshotStore) Save(context.Context, string, Entry) error { return nil }

func (NopSnapshotStore) Load(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, nil
}

var snapshotMigrations = []database.Migration{
	{
		Name: "0001_bill_snapshots",
		SQL: `CREATE TABLE IF NOT EXISTS bill_snapshots (
			query_key  TEXT PRIMARY KEY,
			bills      JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
}

// PostgresSnapshotStore is a PostgreSQL-backed SnapshotStore.
type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotStore creates the store, migrating its schema first.
func NewPostgresSnapshotStore(ctx context.Context, db *database.DB) (*PostgresSnapshotStore, error) {
	if db == nil || db.Pool == nil {
		return nil, fmt.Errorf("database is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := db.Migrate(ctx, snapshotMigrations...); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &PostgresSnapshotStore{pool: db.Pool}, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, key string, e Entry) error {
	data, err := json.Marshal(e.Bills)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO bill_snapshots (query_key, bills, fetched_at, updated_at)
		 VALUES ($1, $2::jsonb, $3, now())
		 ON CONFLICT (query_key) DO UPDATE
		 SET bills = EXCLUDED.bills, fetched_at = EXCLUDED.fetched_at, updated_at = now()`,
		key,
		string(data),
		e.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		data []byte
		e    Entry
	)
	err := s.pool.QueryRow(ctx,
		`SELECT bills, fetched_at FROM bill_snapshots WHERE query_key = $1`,
		key,
	).Scan(&data, &e.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &e.Bills); err != nil {
		return Entry{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return e, true, nil
}
