// ./internal/store/index.go

package store

import (
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

// NumericKey is an entry of the numeric B-Tree: one value and the documents holding it.
type NumericKey struct {
	Value float64
	Keys  map[string]struct{}
}

// StringKey is an entry of the string B-Tree.
type StringKey struct {
	Value string
	Keys  map[string]struct{}
}

func numericLess(a, b NumericKey) bool { return a.Value < b.Value }
func stringLess(a, b StringKey) bool   { return a.Value < b.Value }

// Index keeps one B-Tree per comparable value family.
type Index struct {
	numericTree *btree.BTreeG[NumericKey]
	stringTree  *btree.BTreeG[StringKey]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		numericTree: btree.NewG[NumericKey](btreeDegree, numericLess),
		stringTree:  btree.NewG[StringKey](btreeDegree, stringLess),
	}
}

// IndexManager manages all indexes for a single collection.
type IndexManager struct {
	mu      sync.RWMutex
	indexes map[string]*Index // field name -> index
}

// NewIndexManager creates an index manager with no indexes.
func NewIndexManager() *IndexManager {
	return &IndexManager{indexes: make(map[string]*Index)}
}

// CreateIndex registers an empty index for field. It reports whether a new index was created.
func (im *IndexManager) CreateIndex(field string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, exists := im.indexes[field]; exists {
		return false
	}
	im.indexes[field] = NewIndex()
	slog.Info("B-Tree index created", "field", field)
	return true
}

// DeleteIndex drops the index for field, if any.
func (im *IndexManager) DeleteIndex(field string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, exists := im.indexes[field]; exists {
		delete(im.indexes, field)
		slog.Info("Index deleted", "field", field)
	}
}

// ListIndexes returns the indexed field names in sorted order.
func (im *IndexManager) ListIndexes() []string {
	im.mu.RLock()
	defer im.mu.RUnlock()
	fields := make([]string, 0, len(im.indexes))
	for field := range im.indexes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// HasIndex reports whether field is indexed.
func (im *IndexManager) HasIndex(field string) bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	_, exists := im.indexes[field]
	return exists
}

// indexKey classifies a document value. Numbers (and numeric strings) go to
// the numeric tree; other strings and booleans go to the string tree.
// Objects, arrays and nulls are not indexed.
func indexKey(value any) (num float64, str string, isNum, ok bool) {
	if f, isFloat := valueToFloat64(value); isFloat {
		return f, "", true, true
	}
	switch v := value.(type) {
	case string:
		return 0, v, false, true
	case bool:
		return 0, strconv.FormatBool(v), false, true
	default:
		return 0, "", false, false
	}
}

// sameIndexKey reports whether a and b land on the same index entry.
// Values that are not indexed never compare equal, so a change from an
// unindexed value is always applied.
func sameIndexKey(a, b any) bool {
	numA, strA, isNumA, okA := indexKey(a)
	numB, strB, isNumB, okB := indexKey(b)
	return okA && okB && isNumA == isNumB && numA == numB && strA == strB
}

func (im *IndexManager) addToIndex(index *Index, docKey string, value any) {
	num, str, isNum, ok := indexKey(value)
	if !ok {
		return
	}
	if isNum {
		item, found := index.numericTree.Get(NumericKey{Value: num})
		if !found {
			item = NumericKey{Value: num, Keys: make(map[string]struct{})}
		}
		item.Keys[docKey] = struct{}{}
		index.numericTree.ReplaceOrInsert(item)
		return
	}
	item, found := index.stringTree.Get(StringKey{Value: str})
	if !found {
		item = StringKey{Value: str, Keys: make(map[string]struct{})}
	}
	item.Keys[docKey] = struct{}{}
	index.stringTree.ReplaceOrInsert(item)
}

func (im *IndexManager) removeFromIndex(index *Index, docKey string, value any) {
	num, str, isNum, ok := indexKey(value)
	if !ok {
		return
	}
	if isNum {
		if item, found := index.numericTree.Get(NumericKey{Value: num}); found {
			delete(item.Keys, docKey)
			if len(item.Keys) == 0 {
				index.numericTree.Delete(item)
			}
		}
		return
	}
	if item, found := index.stringTree.Get(StringKey{Value: str}); found {
		delete(item.Keys, docKey)
		if len(item.Keys) == 0 {
			index.stringTree.Delete(item)
		}
	}
}

// Update moves docKey from the old field values to the new ones in every index.
func (im *IndexManager) Update(docKey string, oldData, newData map[string]any) {
	im.mu.Lock()
	defer im.mu.Unlock()

	for field, index := range im.indexes {
		oldVal, oldOk := oldData[field]
		newVal, newOk := newData[field]

		if oldOk && newOk && sameIndexKey(oldVal, newVal) {
			continue
		}
		if oldOk {
			im.removeFromIndex(index, docKey, oldVal)
		}
		if newOk {
			im.addToIndex(index, docKey, newVal)
		}
	}
}

// Remove drops a document from every index.
func (im *IndexManager) Remove(docKey string, data map[string]any) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if data == nil {
		return
	}
	for field, index := range im.indexes {
		if val, ok := data[field]; ok {
			im.removeFromIndex(index, docKey, val)
		}
	}
}

// Lookup returns the documents whose field equals value. The boolean is
// false when the field has no index.
func (im *IndexManager) Lookup(field string, value any) ([]string, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	index, exists := im.indexes[field]
	if !exists {
		return nil, false
	}

	num, str, isNum, ok := indexKey(value)
	if !ok {
		return []string{}, true
	}
	var found map[string]struct{}
	if isNum {
		if item, hit := index.numericTree.Get(NumericKey{Value: num}); hit {
			found = item.Keys
		}
	} else if item, hit := index.stringTree.Get(StringKey{Value: str}); hit {
		found = item.Keys
	}
	return keysOf(found), true
}

// LookupRange returns the documents whose field lies between low and high.
// A nil bound is open. Numeric bounds scan the numeric tree and anything
// else scans the string tree. The boolean is false when the field has no index.
func (im *IndexManager) LookupRange(field string, low, high any, lowInclusive, highInclusive bool) ([]string, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	index, exists := im.indexes[field]
	if !exists {
		return nil, false
	}

	bound := low
	if bound == nil {
		bound = high
	}
	_, isNumericQuery := valueToFloat64(bound)

	union := make(map[string]struct{})
	if isNumericQuery {
		lowVal, hasLow := valueToFloat64(low)
		highVal, hasHigh := valueToFloat64(high)
		visit := func(item NumericKey) bool {
			if hasHigh && (item.Value > highVal || (!highInclusive && item.Value == highVal)) {
				return false
			}
			if hasLow && !lowInclusive && item.Value == lowVal {
				return true
			}
			for k := range item.Keys {
				union[k] = struct{}{}
			}
			return true
		}
		if hasLow {
			index.numericTree.AscendGreaterOrEqual(NumericKey{Value: lowVal}, visit)
		} else {
			index.numericTree.Ascend(visit)
		}
	} else {
		lowVal, hasLow := low.(string)
		highVal, hasHigh := high.(string)
		visit := func(item StringKey) bool {
			if hasHigh && (item.Value > highVal || (!highInclusive && item.Value == highVal)) {
				return false
			}
			if hasLow && !lowInclusive && item.Value == lowVal {
				return true
			}
			for k := range item.Keys {
				union[k] = struct{}{}
			}
			return true
		}
		if hasLow {
			index.stringTree.AscendGreaterOrEqual(StringKey{Value: lowVal}, visit)
		} else {
			index.stringTree.Ascend(visit)
		}
	}
	return keysOf(union), true
}

func keysOf(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}
