package store

import (
	"log/slog"
	"maps"
	"sort"
	"sync"
)

// Snapshot is a point-in-time copy of one collection, handed to the persister.
type Snapshot struct {
	Items   map[string][]byte
	Indexes []string
}

// SnapshotOf copies the live documents and index definitions of a collection.
func SnapshotOf(col DataStore) Snapshot {
	return Snapshot{Items: col.GetAll(), Indexes: col.ListIndexes()}
}

// CollectionPersister defines the persistence operations specific to collections.
type CollectionPersister interface {
	SaveCollection(collectionName string, snap Snapshot) error
	DeleteCollectionFile(collectionName string) error
}

type taskKind int

const (
	taskSave taskKind = iota
	taskDelete
)

// persistTask is one queued file operation. Saves and deletes share a
// single FIFO queue so operations on a collection run in the order they
// were requested.
type persistTask struct {
	kind           taskKind
	collectionName string
	snap           Snapshot
}

// CollectionManager manages the named collections and writes them to disk
// from a single background worker.
type CollectionManager struct {
	collections map[string]DataStore
	mu          sync.RWMutex
	persister   CollectionPersister
	queue       chan persistTask
	quit        chan struct{}
	wg          sync.WaitGroup
	numShards   int
	fileLocks   map[string]*sync.Mutex
	fileLocksMu sync.Mutex
}

// NewCollectionManager creates a CollectionManager and starts its worker.
// A nil persister keeps everything in memory.
func NewCollectionManager(persister CollectionPersister, numShards int) *CollectionManager {
	cm := &CollectionManager{
		collections: make(map[string]DataStore),
		persister:   persister,
		queue:       make(chan persistTask, 100),
		quit:        make(chan struct{}),
		numShards:   numShards,
		fileLocks:   make(map[string]*sync.Mutex),
	}
	cm.startAsyncWorker()
	return cm
}

func (cm *CollectionManager) startAsyncWorker() {
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		slog.Info("Async collection worker started")
		for {
			select {
			case task := <-cm.queue:
				cm.runTask(task)
			case <-cm.quit:
				for len(cm.queue) > 0 {
					cm.runTask(<-cm.queue)
				}
				slog.Info("Async collection worker stopped")
				return
			}
		}
	}()
}

func (cm *CollectionManager) runTask(task persistTask) {
	if cm.persister == nil {
		return
	}
	lock := cm.fileLock(task.collectionName)
	lock.Lock()
	defer lock.Unlock()
	switch task.kind {
	case taskSave:
		if err := cm.persister.SaveCollection(task.collectionName, task.snap); err != nil {
			slog.Error("Error saving collection from async task", "collection", task.collectionName, "error", err)
		}
	case taskDelete:
		if err := cm.persister.DeleteCollectionFile(task.collectionName); err != nil {
			slog.Error("Error deleting collection file from async task", "collection", task.collectionName, "error", err)
		}
	}
}

// Wait drains the queue and stops the worker.
func (cm *CollectionManager) Wait() {
	close(cm.quit)
	cm.wg.Wait()
}

// EnqueueSaveTask snapshots a collection and queues it for writing.
// The snapshot is taken now so the write does not hold collection locks.
func (cm *CollectionManager) EnqueueSaveTask(collectionName string, col DataStore) {
	task := persistTask{kind: taskSave, collectionName: collectionName, snap: SnapshotOf(col)}
	select {
	case cm.queue <- task:
		slog.Debug("Save task enqueued", "collection", collectionName)
	default:
		slog.Warn("Persistence queue is full, dropping save task", "collection", collectionName)
	}
}

// EnqueueDeleteTask queues removal of a collection's file.
func (cm *CollectionManager) EnqueueDeleteTask(collectionName string) {
	select {
	case cm.queue <- persistTask{kind: taskDelete, collectionName: collectionName}:
		slog.Debug("Delete task enqueued", "collection", collectionName)
	default:
		slog.Warn("Persistence queue is full, dropping delete task", "collection", collectionName)
	}
}

// GetCollection retrieves a collection by name, creating it if needed.
func (cm *CollectionManager) GetCollection(name string) DataStore {
	cm.mu.RLock()
	col, found := cm.collections[name]
	cm.mu.RUnlock()
	if found {
		return col
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if col, found = cm.collections[name]; found {
		return col
	}
	newCol := NewInMemStoreWithShards(cm.numShards)
	cm.collections[name] = newCol
	slog.Info("Collection created", "name", name, "num_shards", cm.numShards)
	return newCol
}

// DeleteCollection removes a collection from memory. It reports whether it existed.
func (cm *CollectionManager) DeleteCollection(name string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, exists := cm.collections[name]; !exists {
		slog.Warn("Attempted to delete non-existent collection", "name", name)
		return false
	}
	delete(cm.collections, name)
	slog.Info("Collection deleted from memory", "name", name)
	return true
}

// ListCollections returns the names of all collections in sorted order.
func (cm *CollectionManager) ListCollections() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	names := make([]string, 0, len(cm.collections))
	for name := range cm.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectionExists checks if a collection with the given name exists.
func (cm *CollectionManager) CollectionExists(name string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.collections[name]
	return exists
}

// Snapshots copies every collection for a full save.
func (cm *CollectionManager) Snapshots() map[string]Snapshot {
	cm.mu.RLock()
	cols := maps.Clone(cm.collections)
	cm.mu.RUnlock()

	snaps := make(map[string]Snapshot, len(cols))
	for name, col := range cols {
		snaps[name] = SnapshotOf(col)
	}
	return snaps
}

// CleanExpiredItemsAndSave sweeps TTLs on every collection and queues a
// save for the ones that changed.
func (cm *CollectionManager) CleanExpiredItemsAndSave() {
	cm.mu.RLock()
	cols := maps.Clone(cm.collections)
	cm.mu.RUnlock()

	for name, col := range cols {
		if col.CleanExpiredItems() {
			cm.EnqueueSaveTask(name, col)
		}
	}
}

// FileLock serializes file operations for one collection.
func (cm *CollectionManager) FileLock(collectionName string) *sync.Mutex {
	return cm.fileLock(collectionName)
}

func (cm *CollectionManager) fileLock(collectionName string) *sync.Mutex {
	cm.fileLocksMu.Lock()
	defer cm.fileLocksMu.Unlock()
	lock, exists := cm.fileLocks[collectionName]
	if !exists {
		lock = &sync.Mutex{}
		cm.fileLocks[collectionName] = lock
	}
	return lock
}
