package db

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RowsQuery holds optional time filters for loading snapshot rows.
type RowsQuery struct {
	Since *time.Time
	Until *time.Time
}

// Window is a table source limited to a RowsQuery.
type Window struct {
	Store *Store
	Query RowsQuery
}

// Rows loads the rows inside the window.
func (w Window) Rows(ctx context.Context) ([]table.Row, error) {
	return w.Store.Query(ctx, w.Query)
}

const snapshotRowsBase = `
    SELECT name, lat, lon, bikes_available, spaces_available, total_spaces, allow_dropoff, status, ts
    FROM citybike.station_snapshots
    WHERE TRUE
`

// Query loads snapshot rows in ingest order: by timestamp, then by file and
// position within the file.
func (s *Store) Query(ctx context.Context, q RowsQuery) ([]table.Row, error) {
	args := []any{}
	clause := ""
	argPos := 1
	if q.Since != nil {
		clause += " AND ts >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		clause += " AND ts < $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
	}

	sql := snapshotRowsBase + clause + " ORDER BY ts, source, ordinal"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]table.Row, 0)
	for rows.Next() {
		var (
			r  table.Row
			ts time.Time
		)
		if err := rows.Scan(
			&r.Name,
			&r.Lat,
			&r.Lon,
			&r.BikesAvailable,
			&r.SpacesAvailable,
			&r.TotalSpaces,
			&r.AllowDropoff,
			&r.Status,
			&ts,
		); err != nil {
			return nil, err
		}
		out = append(out, r.WithTimestamp(ts))
	}
	return out, rows.Err()
}
