package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

const getValue = `SELECT value FROM kv_store WHERE key = ?`

func (q *Queries) GetValue(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getValue, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const upsertValue = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) UpsertValue(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertValue, key, value)
	return err
}

const upsertSnapshot = `INSERT INTO summary_snapshots (year, month, summary, computed_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(year, month) DO UPDATE SET summary = excluded.summary, computed_at = excluded.computed_at`

type UpsertSnapshotParams struct {
	Year    int64
	Month   int64
	Summary string
}

func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.Year, arg.Month, arg.Summary)
	return err
}

const listSnapshotsByYear = `SELECT year, month, summary, computed_at FROM summary_snapshots WHERE year = ? ORDER BY month`

type SummarySnapshot struct {
	Year       int64
	Month      int64
	Summary    string
	ComputedAt time.Time
}

func (q *Queries) ListSnapshotsByYear(ctx context.Context, year int64) ([]SummarySnapshot, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotsByYear, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SummarySnapshot
	for rows.Next() {
		var i SummarySnapshot
		if err := rows.Scan(&i.Year, &i.Month, &i.Summary, &i.ComputedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
