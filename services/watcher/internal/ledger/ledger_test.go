package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)

	id, err := l.StartRun(ctx, "range")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	run, err := l.GetRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusRunning || run.FinishedAt != nil || run.Command != "range" {
		t.Errorf("fresh run = %+v", run)
	}

	if err := l.FinishRun(ctx, id, 3, errors.New("network down")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	run, err = l.GetRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed || run.Files != 3 || run.Error != "network down" || run.FinishedAt == nil {
		t.Errorf("finished run = %+v", run)
	}

	if err := l.FinishRun(ctx, "missing", 0, nil); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestFetchedAndPending(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)

	run, err := l.StartRun(ctx, "archive")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkFetched(ctx, run, []string{"a.json", "b.json"}); err != nil {
		t.Fatalf("MarkFetched failed: %v", err)
	}
	// Refetching is harmless.
	if err := l.MarkFetched(ctx, run, []string{"b.json"}); err != nil {
		t.Fatalf("MarkFetched again failed: %v", err)
	}

	fetched, err := l.Fetched(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !fetched["a.json"] || !fetched["b.json"] || len(fetched) != 2 {
		t.Errorf("fetched = %v", fetched)
	}

	build, err := l.StartRun(ctx, "build")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkIngested(ctx, build, []string{"a.json", "manual.json"}); err != nil {
		t.Fatalf("MarkIngested failed: %v", err)
	}

	pending, err := l.Pending(ctx, []string{"a.json", "b.json", "c.json", "manual.json"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"b.json", "c.json"}; !reflect.DeepEqual(pending, want) {
		t.Errorf("pending = %v, want %v", pending, want)
	}
}

func TestReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	run, _ := l.StartRun(ctx, "poll")
	if err := l.MarkFetched(ctx, run, []string{"x.json"}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer l.Close()
	fetched, err := l.Fetched(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !fetched["x.json"] {
		t.Error("fetched files lost across reopen")
	}
}
