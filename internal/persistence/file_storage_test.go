package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"docquery/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_SaveAndLoadRoundTrip(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	src := store.NewInMemStoreWithShards(2)
	src.Set("a", []byte(`{"_id":"a","price":10}`), 0)
	src.Set("b", []byte(`{"_id":"b","price":20}`), 0)
	src.CreateIndex("price")
	require.NoError(t, fs.SaveCollection("products", store.SnapshotOf(src)))

	dst := store.NewInMemStoreWithShards(2)
	require.NoError(t, fs.LoadCollection("products", dst))

	assert.Equal(t, 2, dst.Size())
	assert.Equal(t, []string{"price"}, dst.ListIndexes())
	keys, used := dst.Lookup("price", 20.0)
	assert.True(t, used)
	assert.Equal(t, []string{"b"}, keys)

	value, ok := dst.Get("a")
	require.True(t, ok)
	assert.JSONEq(t, `{"_id":"a","price":10}`, string(value))

	_, err = os.Stat(filepath.Join(fs.Dir(), "products.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorage_SkipsInvalidJSON(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	snap := store.Snapshot{Items: map[string][]byte{"ok": []byte(`{"x":1}`), "bad": []byte(`{not json`)}}
	require.NoError(t, fs.SaveCollection("mixed", snap))

	col := store.NewInMemStoreWithShards(1)
	require.NoError(t, fs.LoadCollection("mixed", col))
	assert.Equal(t, 1, col.Size())
}

func TestFileStorage_LoadMissingFileIsEmpty(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	col := store.NewInMemStoreWithShards(1)
	require.NoError(t, fs.LoadCollection("nothing", col))
	assert.Zero(t, col.Size())
}

func TestFileStorage_LoadCorruptFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "broken.json"), []byte("{"), 0o644))

	err = fs.LoadCollection("broken", store.NewInMemStoreWithShards(1))
	assert.Error(t, err)
}

func TestFileStorage_RejectsPathNames(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		err := fs.SaveCollection(name, store.Snapshot{})
		assert.ErrorIs(t, err, ErrInvalidCollectionName, name)
	}
}

func TestFileStorage_DeleteCollectionFile(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.SaveCollection("gone", store.Snapshot{}))

	require.NoError(t, fs.DeleteCollectionFile("gone"))
	require.NoError(t, fs.DeleteCollectionFile("gone"))

	names, err := fs.ListCollectionFiles()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSaveAndLoadAllCollections(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.SaveCollection("stale", store.Snapshot{}))

	cm := store.NewCollectionManager(nil, 2)
	defer cm.Wait()
	cm.GetCollection("users").Set("u1", []byte(`{"_id":"u1","name":"Ann"}`), 0)
	cm.GetCollection("orders").Set("o1", []byte(`{"_id":"o1"}`), 0)

	require.NoError(t, SaveAllCollections(fs, cm))

	names, err := fs.ListCollectionFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, names)

	loaded := store.NewCollectionManager(nil, 2)
	defer loaded.Wait()
	require.NoError(t, LoadAllCollections(fs, loaded))
	assert.Equal(t, []string{"orders", "users"}, loaded.ListCollections())
	_, ok := loaded.GetCollection("users").Get("u1")
	assert.True(t, ok)
}

func TestCollectionManagerWritesThroughFileStorage(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	cm := store.NewCollectionManager(fs, 1)
	col := cm.GetCollection("events")
	col.Set("e1", []byte(`{"_id":"e1"}`), 0)
	cm.EnqueueSaveTask("events", col)
	cm.Wait()

	check := store.NewInMemStoreWithShards(1)
	require.NoError(t, fs.LoadCollection("events", check))
	assert.Equal(t, 1, check.Size())
}

func TestSnapshotManager(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	cm := store.NewCollectionManager(nil, 1)
	defer cm.Wait()
	cm.GetCollection("ticks").Set("k", []byte(`{"_id":"k"}`), 0)

	sm := NewSnapshotManager(fs, cm, 10*time.Millisecond, true)
	done := make(chan struct{})
	go func() {
		sm.Start()
		close(done)
	}()

	assert.Eventually(t, func() bool {
		names, err := fs.ListCollectionFiles()
		return err == nil && len(names) == 1
	}, time.Second, 10*time.Millisecond)

	sm.Stop()
	sm.Stop()
	<-done
}

func TestSnapshotManagerDisabledReturns(t *testing.T) {
	sm := NewSnapshotManager(nil, nil, time.Second, false)
	sm.Start()
	sm.Stop()
}
