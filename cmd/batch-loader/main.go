// Package main runs one order batch load: it discovers batches from the batch
// source, skips those already in the destination table and appends the rest.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/fairyhunter13/order-batch-loader/internal/config"
	"github.com/fairyhunter13/order-batch-loader/internal/ingest"
	"github.com/fairyhunter13/order-batch-loader/internal/obs"
	"github.com/fairyhunter13/order-batch-loader/internal/source"
	"github.com/fairyhunter13/order-batch-loader/internal/store"
)

const (
	exitOK       = 0
	exitFatal    = 1
	exitFailures = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	obs.InitLoggerWith(os.Stdout, obs.ParseLevel(cfg.LogLevel))
	if err != nil {
		obs.Logger.Error("config_error", "error", err)
		return exitFatal
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, cfg.StoreTable)
	if err != nil {
		obs.Logger.Error("store_open_error", "driver", cfg.StoreDriver, "error", err)
		return exitFatal
	}
	defer st.Close()
	if cfg.StoreCreateTable {
		if err := st.EnsureTable(ctx); err != nil {
			obs.Logger.Error("store_ensure_table_error", "table", cfg.StoreTable, "error", err)
			return exitFatal
		}
	}

	src, err := source.New(cfg.SourceBaseURL, cfg.HTTPTimeout, source.WithPaths(cfg.SourceListPath, cfg.SourceDataPath))
	if err != nil {
		obs.Logger.Error("source_config_error", "error", err)
		return exitFatal
	}

	metrics := obs.NewMetrics()
	report, err := ingest.NewRunner(src, st, metrics).Run(ctx)
	if cfg.PushgatewayURL != "" {
		if perr := metrics.Push(cfg.PushgatewayURL, "batch_loader"); perr != nil {
			obs.Logger.Warn("metrics_push_error", "url", cfg.PushgatewayURL, "error", perr)
		}
	}
	if err != nil {
		obs.Logger.Error("run_aborted", "error", err)
		return exitFatal
	}
	if cfg.StrictExit && report.HasFailures() {
		return exitFailures
	}
	return exitOK
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFile(path)
}
