package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/pipeline"
	"github.com/02loveslollipop/citybike-availability-viewer/services/api/config"
	"github.com/02loveslollipop/citybike-availability-viewer/services/api/db"
	httpserver "github.com/02loveslollipop/citybike-availability-viewer/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var source pipeline.Source
	switch cfg.TableSource {
	case config.SourceDir:
		source = pipeline.DirSource{Dir: cfg.SnapshotDir}
	case config.SourcePostgres:
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connection error: %v", err)
		}
		defer store.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
		err = store.Ping(pingCtx)
		pingCancel()
		if err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		source = db.Window{Store: store, Query: db.RowsQuery{Since: cfg.LoadSince, Until: cfg.LoadUntil}}
	default:
		source = pipeline.CSVSource{Path: cfg.TablePath}
	}

	data, err := pipeline.New(ctx, source, pipeline.Options{DefaultStation: cfg.DefaultStation})
	if err != nil {
		log.Fatalf("load table (%s): %v", cfg.TableSource, err)
	}

	srv := httpserver.New(cfg, source, data)
	log.Printf("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
