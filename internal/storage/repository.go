package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"drivertrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the "sqlite" data backend. It implements kv.Store over
// the kv_store table and keeps the worker's summary snapshots.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements kv.Store
func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.queries.GetValue(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get value %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store
func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertValue(ctx, key, value); err != nil {
		return fmt.Errorf("upsert value %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Value saved to SQLite", "key", key, "bytes", len(value))
	return nil
}

// Ping implements kv.Pinger
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveSnapshot records the summary the worker computed for a month.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, year, month int, s core.MonthSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	err = r.queries.UpsertSnapshot(ctx, UpsertSnapshotParams{
		Year:    int64(year),
		Month:   int64(month),
		Summary: string(data),
	})
	if err != nil {
		return fmt.Errorf("upsert snapshot %d-%02d: %w", year, month+1, err)
	}
	return nil
}

// Snapshots returns the stored summaries for a year keyed by month index.
func (r *SQLiteRepository) Snapshots(ctx context.Context, year int) (map[int]core.MonthSummary, error) {
	rows, err := r.queries.ListSnapshotsByYear(ctx, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list snapshots %d: %w", year, err)
	}
	out := make(map[int]core.MonthSummary, len(rows))
	for _, row := range rows {
		var s core.MonthSummary
		if err := json.Unmarshal([]byte(row.Summary), &s); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable summary snapshot",
				"year", row.Year, "month", row.Month, "error", err)
			continue
		}
		out[int(row.Month)] = s
	}
	return out, nil
}
