package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the snapshot table.
func Schema() string {
	return schemaSQL
}

// EnsureSchema creates the citybike schema and tables if they don't exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertRowSQL = `INSERT INTO citybike.station_snapshots
    (source, ordinal, name, ts, lat, lon, bikes_available, spaces_available, total_spaces, allow_dropoff, status, run_id, ingested_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
ON CONFLICT (source, ordinal) DO UPDATE
SET name = EXCLUDED.name,
    ts = EXCLUDED.ts,
    lat = EXCLUDED.lat,
    lon = EXCLUDED.lon,
    bikes_available = EXCLUDED.bikes_available,
    spaces_available = EXCLUDED.spaces_available,
    total_spaces = EXCLUDED.total_spaces,
    allow_dropoff = EXCLUDED.allow_dropoff,
    status = EXCLUDED.status,
    run_id = EXCLUDED.run_id,
    ingested_at = NOW()`

// ReplaceSource writes the normalized rows of one snapshot file, replacing
// anything previously ingested from it. Rows are keyed by (source, position)
// so repeated stations inside a file are kept.
func ReplaceSource(ctx context.Context, pool *pgxpool.Pool, runID, source string, rows []table.Row) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM citybike.station_snapshots WHERE source = $1`, source); err != nil {
			return fmt.Errorf("clear %s: %w", source, err)
		}
		if len(rows) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, r := range rows {
			batch.Queue(insertRowSQL,
				source, i, r.Name, r.Timestamp, r.Lat, r.Lon,
				r.BikesAvailable, r.SpacesAvailable, r.TotalSpaces, r.AllowDropoff, r.Status, runID)
		}

		res := tx.SendBatch(ctx, batch)
		for range rows {
			if _, err := res.Exec(); err != nil {
				res.Close()
				return fmt.Errorf("insert %s: %w", source, err)
			}
		}
		return res.Close()
	})
}

// CountRows returns the number of stored snapshot rows.
func CountRows(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var n int64
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM citybike.station_snapshots`).Scan(&n)
	return n, err
}
