// Package main boots the Batch Source HTTP server, which serves the batch
// catalog from a local directory.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/order-batch-loader/internal/catalog"
	"github.com/fairyhunter13/order-batch-loader/internal/config"
	httpapi "github.com/fairyhunter13/order-batch-loader/internal/http"
	"github.com/fairyhunter13/order-batch-loader/internal/obs"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	obs.InitLoggerWith(os.Stdout, obs.ParseLevel(cfg.LogLevel))
	if err != nil {
		obs.Logger.Error("config_error", "error", err)
		os.Exit(1)
	}
	obs.Logger.Info("service_starting", "data_dir", cfg.DataDir)

	cat := catalog.New(cfg.DataDir, cfg.BatchListFile)
	if _, err := os.Stat(cat.ListPath()); err != nil {
		obs.Logger.Warn("batch_list_missing", "path", cat.ListPath(), "error", err)
	}

	app := httpapi.NewApp(cfg, cat)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	app.StartShutdown()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFile(path)
}
