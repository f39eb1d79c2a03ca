package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/config"
	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/hsl"
	"github.com/02loveslollipop/citybike-availability-viewer/services/watcher/internal/ledger"
)

const usage = `usage: watcher <command> [flags]

commands:
  archives   list the monthly archives published on the server
  archive    download and extract monthly archives (-month 2019-06, repeatable)
  range      download per-minute snapshots (-start 2019-06-01T08:00 -end 2019-06-01T09:00)
  poll       save the live feed on POLL_SCHEDULE (-once for a single fetch)
  build      parse SNAPSHOT_DIR into the table and aggregate CSVs (and DATABASE_URL)
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatalf("watcher failed: %v", err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	led, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer led.Close()

	app := &app{
		cfg:    cfg,
		client: hsl.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, cfg.BaseURL, cfg.CurrentURL),
		ledger: led,
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "archives":
		return app.listArchives(ctx)
	case "archive":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		var months monthList
		fs.Var(&months, "month", "month to download as YYYY-MM (repeatable)")
		if err := fs.Parse(rest); err != nil || len(months) == 0 {
			return errUsage
		}
		return app.recordRun(ctx, cmd, func(runID string) (int, error) {
			return app.fetchArchives(ctx, runID, months)
		})
	case "range":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		start := fs.String("start", "", "first minute, YYYY-MM-DDTHH:MM UTC")
		end := fs.String("end", "", "end minute (exclusive), YYYY-MM-DDTHH:MM UTC")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		from, to, err := parseRange(*start, *end)
		if err != nil {
			return err
		}
		return app.recordRun(ctx, cmd, func(runID string) (int, error) {
			return app.fetchRange(ctx, runID, from, to)
		})
	case "poll":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		once := fs.Bool("once", false, "fetch a single snapshot and exit")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if *once {
			return app.recordRun(ctx, cmd, func(runID string) (int, error) {
				return app.pollOnce(ctx, runID)
			})
		}
		return app.poll(ctx)
	case "build":
		return app.recordRun(ctx, cmd, func(runID string) (int, error) {
			return app.build(ctx, runID)
		})
	default:
		return errUsage
	}
}
