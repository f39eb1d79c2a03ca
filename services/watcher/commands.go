package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/aggregate"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/normalize"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/snapshot"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/config"
	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/db"
	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/hsl"
	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/ledger"
)

const (
	monthFlagLayout  = "2006-01"
	minuteFlagLayout = "2006-01-02T15:04"
)

type app struct {
	cfg    config.Config
	client *hsl.Client
	ledger *ledger.Ledger
}

type monthList []time.Time

func (m *monthList) String() string {
	parts := make([]string, len(*m))
	for i, t := range *m {
		parts[i] = t.Format(monthFlagLayout)
	}
	return strings.Join(parts, ",")
}

func (m *monthList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		t, err := time.ParseInLocation(monthFlagLayout, strings.TrimSpace(part), time.UTC)
		if err != nil {
			return fmt.Errorf("invalid month %q: %w", part, err)
		}
		*m = append(*m, t)
	}
	return nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(minuteFlagLayout, start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
	}
	to, err := time.ParseInLocation(minuteFlagLayout, end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("-start must be before -end")
	}
	return from, to, nil
}

// recordRun brackets fn with ledger bookkeeping.
func (a *app) recordRun(ctx context.Context, command string, fn func(runID string) (int, error)) error {
	runID, err := a.ledger.StartRun(ctx, command)
	if err != nil {
		return err
	}
	log.Printf("%s run %s started", command, runID)

	files, runErr := fn(runID)

	// Record the outcome even when ctx was cancelled mid-run.
	bg := context.WithoutCancel(ctx)
	if err := a.ledger.FinishRun(bg, runID, files, runErr); err != nil {
		log.Printf("warning: could not finish run %s: %v", runID, err)
		return runErr
	}
	run, err := a.ledger.GetRun(bg, runID)
	if err != nil {
		log.Printf("warning: could not read back run %s: %v", runID, err)
		return runErr
	}
	took := time.Duration(0)
	if run.FinishedAt != nil {
		took = run.FinishedAt.Sub(run.StartedAt)
	}
	log.Printf("%s run %s %s in %s (%d files)", command, runID, run.Status, took, run.Files)
	return runErr
}

func (a *app) listArchives(ctx context.Context) error {
	names, err := a.client.ListArchives(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func (a *app) fetchArchives(ctx context.Context, runID string, months []time.Time) (int, error) {
	total := 0
	for _, month := range months {
		if a.cfg.DryRun {
			log.Printf("dry-run: would download %s", hsl.ArchiveName(month))
			continue
		}
		names, err := a.client.FetchArchive(ctx, month, a.cfg.SnapshotDir)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			if !errors.Is(err, hsl.ErrNotFound) && !errors.Is(err, hsl.ErrUnavailable) {
				return total, err
			}
			// Members extracted before a truncated stream are still usable.
			if markErr := a.ledger.MarkFetched(ctx, runID, names); markErr != nil {
				return total, markErr
			}
			total += len(names)
			log.Printf("File %s not found on server, skipping. (%v)", hsl.ArchiveName(month), err)
			continue
		}
		if err := a.ledger.MarkFetched(ctx, runID, names); err != nil {
			return total, err
		}
		log.Printf("extracted %d snapshots from %s", len(names), hsl.ArchiveName(month))
		total += len(names)
	}
	return total, nil
}

func (a *app) fetchRange(ctx context.Context, runID string, from, to time.Time) (int, error) {
	fetched, err := a.ledger.Fetched(ctx)
	if err != nil {
		return 0, err
	}
	if a.cfg.DryRun {
		n := 0
		for t := from; t.Before(to); t = t.Add(time.Minute) {
			if !fetched[hsl.SnapshotName(t)] {
				n++
			}
		}
		log.Printf("dry-run: would request %d snapshots between %s and %s", n, from.Format(minuteFlagLayout), to.Format(minuteFlagLayout))
		return 0, nil
	}

	names, fetchErr := a.client.FetchRange(ctx, from, to, a.cfg.SnapshotDir, func(name string) bool {
		return fetched[name]
	})
	// Keep what was downloaded even if the range was interrupted.
	if err := a.ledger.MarkFetched(context.WithoutCancel(ctx), runID, names); err != nil {
		return len(names), err
	}
	return len(names), fetchErr
}

func (a *app) pollOnce(ctx context.Context, runID string) (int, error) {
	now := time.Now().UTC()
	if a.cfg.DryRun {
		log.Printf("dry-run: would save %s", hsl.SnapshotName(now))
		return 0, nil
	}
	name, err := a.client.FetchCurrent(ctx, now, a.cfg.SnapshotDir)
	if err != nil {
		return 0, err
	}
	if err := a.ledger.MarkFetched(ctx, runID, []string{name}); err != nil {
		return 1, err
	}
	log.Printf("saved %s", name)
	return 1, nil
}

func (a *app) poll(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(a.cfg.PollSchedule, func() {
		if err := a.recordRun(ctx, "poll", func(runID string) (int, error) {
			return a.pollOnce(ctx, runID)
		}); err != nil {
			log.Printf("scheduled poll failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}

	log.Printf("polling %s on schedule %q", a.cfg.CurrentURL, a.cfg.PollSchedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("poller stopped")
	return nil
}

func (a *app) build(ctx context.Context, runID string) (int, error) {
	records, report, err := snapshot.ParseDir(a.cfg.SnapshotDir)
	if err != nil {
		return 0, err
	}

	t, _ := normalize.Normalize(records)
	if dups := normalize.Duplicates(t); dups > 0 {
		log.Printf("warning: %d rows repeat a (station, timestamp) pair; keeping them", dups)
	}
	aggs := aggregate.Stations(t, aggregate.ByName)

	if a.cfg.DryRun {
		log.Printf("dry-run: would write %d rows to %s and %d aggregates to %s",
			t.Len(), a.cfg.TablePath, len(aggs), a.cfg.AggregatesPath)
		return report.Parsed, nil
	}

	if err := t.WriteFile(a.cfg.TablePath); err != nil {
		return report.Parsed, fmt.Errorf("write table: %w", err)
	}
	if err := table.WriteAggregatesFile(a.cfg.AggregatesPath, aggs); err != nil {
		return report.Parsed, fmt.Errorf("write aggregates: %w", err)
	}
	log.Printf("wrote %d rows to %s and %d aggregates to %s", t.Len(), a.cfg.TablePath, len(aggs), a.cfg.AggregatesPath)

	if a.cfg.DatabaseURL == "" {
		return report.Parsed, nil
	}
	if err := a.ingest(ctx, runID, records); err != nil {
		return report.Parsed, err
	}
	return report.Parsed, nil
}

// ingest loads files not yet recorded as ingested into Postgres, one
// transaction per file.
func (a *app) ingest(ctx context.Context, runID string, records []snapshot.Record) error {
	bySource := map[string][]snapshot.Record{}
	var sources []string
	for _, rec := range records {
		if _, ok := bySource[rec.Source]; !ok {
			sources = append(sources, rec.Source)
		}
		bySource[rec.Source] = append(bySource[rec.Source], rec)
	}

	pending, err := a.ledger.Pending(ctx, sources)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Println("database is up to date")
		return nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	inserted := 0
	for _, source := range pending {
		rows, _ := normalize.Rows(bySource[source])
		if err := db.ReplaceSource(ctx, pool, runID, source, rows); err != nil {
			return err
		}
		if err := a.ledger.MarkIngested(ctx, runID, []string{source}); err != nil {
			return err
		}
		inserted += len(rows)
	}

	stored, err := db.CountRows(ctx, pool)
	if err != nil {
		return fmt.Errorf("count stored rows: %w", err)
	}
	log.Printf("ingested %d rows from %d files into postgres (%d rows stored)", inserted, len(pending), stored)
	return nil
}
