package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docquery/internal/api"
	"docquery/internal/config"
	"docquery/internal/persistence"
	"docquery/internal/store"
)

func main() {
	cfg := config.LoadConfig()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	fs, err := persistence.NewFileStorage(cfg.DataDir)
	if err != nil {
		slog.Error("Fatal error preparing data directory", "error", err)
		os.Exit(1)
	}
	fs.Workers = cfg.PersistWorkers

	// 1. Collections, with writes persisted by the manager's worker.
	cm := store.NewCollectionManager(fs, cfg.NumShards)

	// 2. Load persisted collections on start.
	if err := persistence.LoadAllCollections(fs, cm); err != nil {
		slog.Error("Fatal error loading collections", "error", err)
		os.Exit(1)
	}

	// 3. Scheduled snapshots and TTL sweeps.
	snapshots := persistence.NewSnapshotManager(fs, cm, cfg.SnapshotInterval, cfg.EnableSnapshots)
	go snapshots.Start()

	stopCleaner := make(chan struct{})
	go runTTLCleaner(cm, cfg.TtlCleanInterval, stopCleaner)

	// 4. HTTP server.
	handlers := api.NewHandlers(cm, cfg.AllowedFilters())
	server := &http.Server{
		Addr:         cfg.Port,
		Handler:      handlers.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", cfg.Port, "data_dir", cfg.DataDir, "shards", cfg.NumShards)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start server", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Termination signal received. Attempting graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server gracefully stopped")
	}

	snapshots.Stop()
	close(stopCleaner)
	cm.Wait()

	slog.Info("Saving collections before exit...")
	if err := persistence.SaveAllCollections(fs, cm); err != nil {
		slog.Error("Error saving collections during shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Collections saved. Application exiting.")
}

// runTTLCleaner removes expired documents on every tick.
func runTTLCleaner(cm *store.CollectionManager, interval time.Duration, quit <-chan struct{}) {
	if interval <= 0 {
		slog.Info("TTL cleaner disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cm.CleanExpiredItemsAndSave()
		case <-quit:
			return
		}
	}
}
