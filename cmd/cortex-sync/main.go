// File path: cmd/cortex-sync/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyparchive/cortex-sync/internal/common"
	"github.com/nyparchive/cortex-sync/internal/config"
	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/report"
	"github.com/nyparchive/cortex-sync/internal/solr"
	"github.com/nyparchive/cortex-sync/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cortex-sync:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envPath    = flag.String("env", ".env", "path to the .env configuration file")
		sources    = flag.Bool("sources", true, "sync composer and artist source records")
		folders    = flag.Bool("folders", true, "sync program folders")
		metadata   = flag.Bool("metadata", true, "sync program metadata")
		people     = flag.Bool("people", true, "link people to program folders")
		works      = flag.Bool("works", true, "sync works and program works")
		library    = flag.Bool("library", true, "sync the printed music hierarchy")
		records    = flag.Bool("records", true, "sync business records")
		visibility = flag.Bool("visibility", false, "sweep past-dated records to public visibility")
	)
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := common.OpenRunLog(cfg.LogsPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("=======================")
	logger.Info("cortex-sync: starting run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := cortex.New(cortex.Config{
		BaseURL:       cfg.BaseURL,
		DataTablePath: cfg.DataTablePath,
		Login:         cfg.Login,
		Password:      cfg.Password,
		Timeout:       cfg.RequestTimeout,
	})
	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("no API token: %w", err)
	}
	logger.Info("cortex-sync: authenticated, proceeding")

	runID := time.Now().Format("2006-01-02-15-04-05")
	var store *report.Store
	if cfg.ReportPath != "" {
		store, err = report.Open(cfg.ReportPath, runID)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	exec := cortex.NewExecutor(cortex.RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
	}, store)

	syncer := sync.New(cfg, client, solr.New(cfg.SolrURL, cfg.RequestTimeout), exec)
	runErr := syncer.Run(ctx, sync.Stages{
		Sources:         *sources,
		ProgramFolders:  *folders,
		ProgramMetadata: *metadata,
		ProgramSources:  *people,
		ProgramWorks:    *works,
		Library:         *library,
		BusinessRecords: *records,
		Visibility:      *visibility,
	})

	if store != nil {
		summary, err := store.Summary(ctx, runID)
		if err != nil {
			logger.Error("cortex-sync: summary query failed", "error", err)
		}
		for _, entry := range summary {
			logger.Info("cortex-sync: run summary",
				"entity", entry.Entity, "succeeded", entry.Succeeded, "failed", entry.Failed)
		}
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("cortex-sync: all done")
	return nil
}
