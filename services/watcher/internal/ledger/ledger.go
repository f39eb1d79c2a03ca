// Package ledger records watcher runs and which snapshot files have been
// downloaded and ingested, so reruns can resume instead of starting over.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Run is one recorded watcher invocation.
type Run struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Files      int
	Error      string
}

// Ledger wraps the SQLite bookkeeping database.
type Ledger struct {
	conn    *sql.DB
	writeMu sync.Mutex
	now     func() time.Time
}

// Open opens (creating if needed) the ledger at path and ensures its schema.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	log.Printf("Ledger ready at %s", path)
	return &Ledger{conn: conn, now: time.Now}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func (l *Ledger) stamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

// StartRun records a new run and returns its ID.
func (l *Ledger) StartRun(ctx context.Context, command string) (string, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	id := uuid.New().String()
	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO runs (id, command, started_at, status) VALUES (?, ?, ?, ?)`,
		id, command, l.stamp(), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run, marking it failed when runErr is non-nil.
func (l *Ledger) FinishRun(ctx context.Context, id string, files int, runErr error) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	status, msg := StatusOK, sql.NullString{}
	if runErr != nil {
		status = StatusFailed
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := l.conn.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, files = ?, error = ? WHERE id = ?`,
		l.stamp(), status, files, msg, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", id)
	}
	return nil
}

// GetRun loads a run by ID.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
		msg      sql.NullString
	)
	err := l.conn.QueryRowContext(ctx,
		`SELECT id, command, started_at, finished_at, status, files, error FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Command, &started, &finished, &r.Status, &r.Files, &msg)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	if finished.Valid {
		ft, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("get run %s: %w", id, err)
		}
		r.FinishedAt = &ft
	}
	r.Error = msg.String
	return r, nil
}

// MarkFetched records that names were downloaded by runID.
func (l *Ledger) MarkFetched(ctx context.Context, runID string, names []string) error {
	return l.inTx(ctx, func(tx *sql.Tx, ts string) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO files (name, run_id, fetched_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET run_id = excluded.run_id, fetched_at = excluded.fetched_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, name := range names {
			if _, err := stmt.ExecContext(ctx, name, runID, ts); err != nil {
				return fmt.Errorf("mark fetched %s: %w", name, err)
			}
		}
		return nil
	})
}

// MarkIngested records that names were loaded into the database by runID.
// Files that were never fetched through the watcher are added as well.
func (l *Ledger) MarkIngested(ctx context.Context, runID string, names []string) error {
	return l.inTx(ctx, func(tx *sql.Tx, ts string) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO files (name, run_id, fetched_at, ingested_at, ingest_run) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET ingested_at = excluded.ingested_at, ingest_run = excluded.ingest_run`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, name := range names {
			if _, err := stmt.ExecContext(ctx, name, runID, ts, ts, runID); err != nil {
				return fmt.Errorf("mark ingested %s: %w", name, err)
			}
		}
		return nil
	})
}

// Fetched returns the set of file names already downloaded.
func (l *Ledger) Fetched(ctx context.Context) (map[string]bool, error) {
	return l.names(ctx, `SELECT name FROM files`)
}

// Pending filters names down to those not yet ingested, keeping order.
func (l *Ledger) Pending(ctx context.Context, names []string) ([]string, error) {
	done, err := l.names(ctx, `SELECT name FROM files WHERE ingested_at IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !done[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

func (l *Ledger) names(ctx context.Context, query string) (map[string]bool, error) {
	rows, err := l.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	set := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = true
	}
	return set, rows.Err()
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx *sql.Tx, ts string) error) (err error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if err = fn(tx, l.stamp()); err != nil {
		return err
	}
	return tx.Commit()
}
