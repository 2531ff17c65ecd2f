package store

import (
	"bytes"
	stdjson "encoding/json"
	"hash/fnv"
	"log/slog"
	"maps"
	"math"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// tryUnmarshal decodes a document for indexing. Top-level numbers become
// float64 so that indexed values compare consistently.
func tryUnmarshal(value []byte) map[string]any {
	var data map[string]any

	decoder := jsoniter.NewDecoder(bytes.NewReader(value))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return nil // Not a JSON object, cannot be indexed.
	}

	// UseNumber yields encoding/json.Number for interface values.
	for k, v := range data {
		var num string
		switch n := v.(type) {
		case stdjson.Number:
			num = n.String()
		case jsoniter.Number:
			num = n.String()
		default:
			continue
		}
		if f, err := strconv.ParseFloat(num, 64); err == nil {
			data[k] = f
		} else {
			data[k] = num
		}
	}
	return data
}

// valueToFloat64 converts numeric types and numeric strings to float64.
func valueToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case jsoniter.Number:
		f, err := val.Float64()
		return f, err == nil
	case stdjson.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

// Item represents an individual key-value entry.
type Item struct {
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration // 0 means no expiration.
}

func (it Item) expired(now time.Time) bool {
	return it.TTL > 0 && now.After(it.CreatedAt.Add(it.TTL))
}

// Shard represents a segment of the in-memory store.
type Shard struct {
	data map[string]Item
	mu   sync.RWMutex
}

// DataStore is the document collection API the executor and the HTTP layer work against.
type DataStore interface {
	Set(key string, value []byte, ttl time.Duration)
	Get(key string) ([]byte, bool)
	GetMany(keys []string) map[string][]byte
	Delete(key string)
	GetAll() map[string][]byte
	LoadData(data map[string][]byte)
	CleanExpiredItems() bool
	Size() int

	CreateIndex(field string)
	DeleteIndex(field string)
	ListIndexes() []string
	HasIndex(field string) bool
	Lookup(field string, value any) ([]string, bool)
	LookupRange(field string, low, high any, lowInclusive, highInclusive bool) ([]string, bool)
}

// InMemStore implements DataStore with sharding and B-Tree indexing.
type InMemStore struct {
	shards    []*Shard
	numShards int
	indexes   *IndexManager
}

// NewInMemStoreWithShards creates a new InMemStore with a specified number of shards.
func NewInMemStoreWithShards(numShards int) *InMemStore {
	if numShards < 1 {
		numShards = 1
	}
	s := &InMemStore{
		shards:    make([]*Shard, numShards),
		numShards: numShards,
		indexes:   NewIndexManager(),
	}
	for i := range numShards {
		s.shards[i] = &Shard{data: make(map[string]Item)}
	}
	slog.Debug("InMemStore initialized", "num_shards", numShards)
	return s
}

func (s *InMemStore) shardIndex(key string) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(s.numShards))
}

func (s *InMemStore) getShard(key string) *Shard {
	return s.shards[s.shardIndex(key)]
}

// Set saves a document and updates any relevant indexes.
// Overwriting a key keeps its original creation time.
func (s *InMemStore) Set(key string, value []byte, ttl time.Duration) {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	var oldData map[string]any
	createdAt := time.Now()
	old, isUpdate := shard.data[key]
	if isUpdate {
		oldData = tryUnmarshal(old.Value)
		createdAt = old.CreatedAt
	}

	shard.data[key] = Item{Value: value, CreatedAt: createdAt, TTL: ttl}

	if newData := tryUnmarshal(value); oldData != nil || newData != nil {
		s.indexes.Update(key, oldData, newData)
	}
	slog.Debug("Item set", "shard_id", s.shardIndex(key), "key", key, "is_update", isUpdate)
}

// Get retrieves a live document by key.
func (s *InMemStore) Get(key string) ([]byte, bool) {
	shard := s.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	item, found := shard.data[key]
	if !found || item.expired(time.Now()) {
		return nil, false
	}
	return item.Value, true
}

// GetMany retrieves multiple keys concurrently by grouping them by shard.
func (s *InMemStore) GetMany(keys []string) map[string][]byte {
	if len(keys) == 0 {
		return make(map[string][]byte)
	}

	keysByShard := make([][]string, s.numShards)
	for _, key := range keys {
		idx := s.shardIndex(key)
		keysByShard[idx] = append(keysByShard[idx], key)
	}

	resultsChan := make(chan map[string][]byte, s.numShards)
	var wg sync.WaitGroup
	now := time.Now()

	for i, shardKeys := range keysByShard {
		if len(shardKeys) == 0 {
			continue
		}
		wg.Add(1)
		go func(shard *Shard, keysInShard []string) {
			defer wg.Done()
			found := make(map[string][]byte, len(keysInShard))
			shard.mu.RLock()
			for _, key := range keysInShard {
				if item, ok := shard.data[key]; ok && !item.expired(now) {
					found[key] = item.Value
				}
			}
			shard.mu.RUnlock()
			resultsChan <- found
		}(s.shards[i], shardKeys)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make(map[string][]byte, len(keys))
	for found := range resultsChan {
		maps.Copy(results, found)
	}
	return results
}

// Delete removes a document and updates any relevant indexes.
func (s *InMemStore) Delete(key string) {
	shard := s.getShard(key)
	shard.mu.Lock()
	if item, exists := shard.data[key]; exists {
		if data := tryUnmarshal(item.Value); data != nil {
			s.indexes.Remove(key, data)
		}
	}
	delete(shard.data, key)
	shard.mu.Unlock()
	slog.Debug("Item deleted", "shard_id", s.shardIndex(key), "key", key)
}

// GetAll returns a copy of all live documents across every shard.
func (s *InMemStore) GetAll() map[string][]byte {
	all := make(map[string][]byte)
	now := time.Now()

	for _, shard := range s.shards {
		shard.mu.RLock()
		for k, item := range shard.data {
			if !item.expired(now) {
				all[k] = bytes.Clone(item.Value)
			}
		}
		shard.mu.RUnlock()
	}
	return all
}

// LoadData replaces the store's content and rebuilds existing indexes.
func (s *InMemStore) LoadData(data map[string][]byte) {
	for _, shard := range s.shards {
		shard.mu.Lock()
		shard.data = make(map[string]Item)
		shard.mu.Unlock()
	}
	for _, field := range s.indexes.ListIndexes() {
		s.indexes.DeleteIndex(field)
		s.indexes.CreateIndex(field)
	}

	now := time.Now()
	for k, v := range data {
		shard := s.getShard(k)
		shard.mu.Lock()
		shard.data[k] = Item{Value: v, CreatedAt: now}
		shard.mu.Unlock()
		if doc := tryUnmarshal(v); doc != nil {
			s.indexes.Update(k, nil, doc)
		}
	}
	slog.Info("Data loaded into shards", "num_shards", s.numShards, "total_keys", len(data))
}

// CleanExpiredItems physically deletes expired documents and reports
// whether anything was removed.
func (s *InMemStore) CleanExpiredItems() bool {
	total := 0
	now := time.Now()

	for i, shard := range s.shards {
		shard.mu.Lock()
		deleted := 0
		for key, item := range shard.data {
			if item.expired(now) {
				if data := tryUnmarshal(item.Value); data != nil {
					s.indexes.Remove(key, data)
				}
				delete(shard.data, key)
				deleted++
			}
		}
		shard.mu.Unlock()

		if deleted > 0 {
			total += deleted
			slog.Debug("TTL cleaner removed expired items from shard", "shard_id", i, "count", deleted)
		}
	}

	if total > 0 {
		slog.Info("TTL cleaner finished run", "total_removed", total)
	}
	return total > 0
}

// Size returns the number of stored documents, expired or not.
func (s *InMemStore) Size() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.data)
		shard.mu.RUnlock()
	}
	return total
}

// CreateIndex creates an index on a field and backfills it with existing data.
func (s *InMemStore) CreateIndex(field string) {
	if !s.indexes.CreateIndex(field) {
		slog.Debug("Index creation skipped: already exists", "field", field)
		return
	}

	count := 0
	for key, value := range s.GetAll() {
		if data := tryUnmarshal(value); data != nil {
			if val, ok := data[field]; ok {
				s.indexes.Update(key, nil, map[string]any{field: val})
				count++
			}
		}
	}
	slog.Info("Index backfill complete", "field", field, "item_count", count)
}

func (s *InMemStore) DeleteIndex(field string)   { s.indexes.DeleteIndex(field) }
func (s *InMemStore) ListIndexes() []string      { return s.indexes.ListIndexes() }
func (s *InMemStore) HasIndex(field string) bool { return s.indexes.HasIndex(field) }

func (s *InMemStore) Lookup(field string, value any) ([]string, bool) {
	return s.indexes.Lookup(field, value)
}

func (s *InMemStore) LookupRange(field string, low, high any, lowInclusive, highInclusive bool) ([]string, bool) {
	return s.indexes.LookupRange(field, low, high, lowInclusive, highInclusive)
}
