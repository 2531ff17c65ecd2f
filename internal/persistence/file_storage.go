package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"docquery/internal/globalconst"
	"docquery/internal/store"

	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
)

// DefaultWorkers is the number of collections loaded or saved in parallel.
const DefaultWorkers = 4

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidCollectionName is returned for names that cannot be used as a file name.
var ErrInvalidCollectionName = errors.New("invalid collection name")

// collectionFile is the on-disk layout of one collection.
type collectionFile struct {
	Indexes []string                       `json:"indexes"`
	Items   map[string]jsoniter.RawMessage `json:"items"`
}

// FileStorage keeps one JSON file per collection under <dataDir>/collections.
// It implements store.CollectionPersister.
type FileStorage struct {
	dir string
	// Workers bounds how many collection files are read or written at once.
	Workers int
}

// NewFileStorage creates the collections directory if it does not exist.
func NewFileStorage(dataDir string) (*FileStorage, error) {
	dir := filepath.Join(dataDir, globalconst.CollectionsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create collections directory '%s': %w", dir, err)
	}
	return &FileStorage{dir: dir, Workers: DefaultWorkers}, nil
}

// Dir returns the directory holding the collection files.
func (fs *FileStorage) Dir() string {
	return fs.dir
}

func (fs *FileStorage) path(collectionName string) (string, error) {
	if collectionName == "" || collectionName == "." || collectionName == ".." ||
		strings.ContainsAny(collectionName, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCollectionName, collectionName)
	}
	return filepath.Join(fs.dir, collectionName+globalconst.SnapshotFileExtension), nil
}

// SaveCollection writes a snapshot through a temporary file and an atomic
// rename, so the collection file is always complete.
func (fs *FileStorage) SaveCollection(collectionName string, snap store.Snapshot) error {
	filePath, err := fs.path(collectionName)
	if err != nil {
		return err
	}

	content := collectionFile{
		Indexes: snap.Indexes,
		Items:   make(map[string]jsoniter.RawMessage, len(snap.Items)),
	}
	if content.Indexes == nil {
		content.Indexes = []string{}
	}
	for key, value := range snap.Items {
		if !json.Valid(value) {
			slog.Warn("Skipping item that is not valid JSON", "collection", collectionName, "key", key)
			continue
		}
		content.Items[key] = value
	}

	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode collection '%s': %w", collectionName, err)
	}

	tempPath := filePath + globalconst.TempFileSuffix
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file '%s': %w", tempPath, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write collection '%s': %w", collectionName, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temporary file for '%s': %w", collectionName, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file for '%s': %w", collectionName, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file to '%s': %w", filePath, err)
	}

	slog.Debug("Collection saved", "collection", collectionName, "items", len(content.Items), "indexes", len(content.Indexes), "path", filePath)
	return nil
}

// DeleteCollectionFile removes a collection's file. A missing file is not an error.
func (fs *FileStorage) DeleteCollectionFile(collectionName string) error {
	filePath, err := fs.path(collectionName)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			slog.Debug("Collection file does not exist, nothing to delete", "path", filePath)
			return nil
		}
		return fmt.Errorf("failed to delete collection file '%s': %w", filePath, err)
	}
	slog.Info("Collection file deleted", "path", filePath)
	return nil
}

// LoadCollection reads a collection file into col. Indexes are declared
// before the items are loaded so they are built in one pass.
func (fs *FileStorage) LoadCollection(collectionName string, col store.DataStore) error {
	filePath, err := fs.path(collectionName)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Collection file not found, starting empty", "collection", collectionName)
			return nil
		}
		return fmt.Errorf("failed to read collection file '%s': %w", filePath, err)
	}

	var content collectionFile
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("failed to decode collection file '%s': %w", filePath, err)
	}

	for _, field := range content.Indexes {
		col.CreateIndex(field)
	}
	items := make(map[string][]byte, len(content.Items))
	for key, value := range content.Items {
		items[key] = value
	}
	col.LoadData(items)

	slog.Info("Collection loaded", "collection", collectionName, "items", len(items), "indexes", len(content.Indexes))
	return nil
}

// ListCollectionFiles returns the collection names found on disk, sorted.
func (fs *FileStorage) ListCollectionFiles() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections directory '%s': %w", fs.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), globalconst.SnapshotFileExtension); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// forEach runs fn for every name on a bounded worker pool and joins the errors.
func (fs *FileStorage) forEach(names []string, fn func(name string) error) error {
	pool, err := ants.NewPool(max(fs.Workers, 1), ants.WithPanicHandler(func(v any) {
		slog.Error("Persistence worker panic", "panic", v)
	}))
	if err != nil {
		return fmt.Errorf("failed to start persistence workers: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	for _, name := range names {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := fn(name); err != nil {
				record(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			record(fmt.Errorf("collection '%s': %w", name, submitErr))
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// LoadAllCollections loads every collection file into the manager. A file
// that fails to load is logged and skipped.
func LoadAllCollections(fs *FileStorage, cm *store.CollectionManager) error {
	names, err := fs.ListCollectionFiles()
	if err != nil {
		return err
	}
	err = fs.forEach(names, func(name string) error {
		if err := fs.LoadCollection(name, cm.GetCollection(name)); err != nil {
			slog.Warn("Failed to load collection", "collection", name, "error", err)
		}
		return nil
	})
	slog.Info("Finished loading collections", "count", len(names))
	return err
}

// SaveAllCollections writes every collection in the manager and removes
// files of collections that no longer exist in memory.
func SaveAllCollections(fs *FileStorage, cm *store.CollectionManager) error {
	snaps := cm.Snapshots()
	names := make([]string, 0, len(snaps))
	for name := range snaps {
		names = append(names, name)
	}

	saveErr := fs.forEach(names, func(name string) error {
		lock := cm.FileLock(name)
		lock.Lock()
		defer lock.Unlock()
		// Deleted since the snapshot was taken: writing it would bring the file back.
		if !cm.CollectionExists(name) {
			return nil
		}
		if err := fs.SaveCollection(name, snaps[name]); err != nil {
			slog.Error("Error saving collection", "collection", name, "error", err)
			return err
		}
		return nil
	})

	onDisk, err := fs.ListCollectionFiles()
	if err != nil {
		slog.Warn("Failed to list collection files for cleanup", "error", err)
		return errors.Join(saveErr, err)
	}
	var stale []string
	for _, name := range onDisk {
		if _, active := snaps[name]; !active || !cm.CollectionExists(name) {
			stale = append(stale, name)
		}
	}
	cleanErr := fs.forEach(stale, func(name string) error {
		lock := cm.FileLock(name)
		lock.Lock()
		defer lock.Unlock()
		if err := fs.DeleteCollectionFile(name); err != nil {
			slog.Warn("Failed to remove stale collection file", "collection", name, "error", err)
			return err
		}
		return nil
	})

	if err := errors.Join(saveErr, cleanErr); err != nil {
		return err
	}
	slog.Info("All collections saved to disk", "count", len(snaps))
	return nil
}
