// ./internal/persistence/snapshot.go

package persistence

import (
	"log/slog"
	"sync"
	"time"

	"docquery/internal/store"
)

// SnapshotManager periodically writes every collection to disk.
type SnapshotManager struct {
	Storage          *FileStorage
	Manager          *store.CollectionManager
	Interval         time.Duration
	Quit             chan struct{}
	SnapshotsEnabled bool

	stopOnce sync.Once
}

// NewSnapshotManager creates a SnapshotManager. Call Start in its own goroutine.
func NewSnapshotManager(fs *FileStorage, cm *store.CollectionManager, interval time.Duration, enabled bool) *SnapshotManager {
	return &SnapshotManager{
		Storage:          fs,
		Manager:          cm,
		Interval:         interval,
		Quit:             make(chan struct{}),
		SnapshotsEnabled: enabled,
	}
}

// Start blocks, saving on every tick until Stop is called.
func (sm *SnapshotManager) Start() {
	if !sm.SnapshotsEnabled || sm.Interval <= 0 {
		slog.Info("Scheduled snapshots are disabled or interval is invalid")
		return
	}

	slog.Info("Scheduled snapshots enabled", "interval", sm.Interval)
	ticker := time.NewTicker(sm.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Debug("Performing scheduled snapshot")
			if err := SaveAllCollections(sm.Storage, sm.Manager); err != nil {
				slog.Error("Error performing scheduled snapshot", "error", err)
			}
		case <-sm.Quit:
			slog.Info("Snapshot manager stopped")
			return
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (sm *SnapshotManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.Quit) })
}
