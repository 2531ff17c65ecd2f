// ./internal/executor/executor.go

// Package executor runs a pipeline.Spec against one collection of the
// in-memory store: candidate selection through indexes, filtering, search,
// sorting, windowing and projection.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"

	"docquery/internal/globalconst"
	"docquery/internal/pipeline"
	"docquery/internal/store"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidRegex is returned when a search or $regex pattern does not compile.
var ErrInvalidRegex = errors.New("invalid regular expression")

const (
	opEq  = globalconst.OperatorSigil + globalconst.OpEqual
	opNeq = globalconst.OperatorSigil + globalconst.OpNotEqual
	opNe  = globalconst.OperatorSigil + "ne"
	opGt  = globalconst.OperatorSigil + globalconst.OpGreaterThan
	opGte = globalconst.OperatorSigil + globalconst.OpGreaterThanOrEqual
	opLt  = globalconst.OperatorSigil + globalconst.OpLessThan
	opLte = globalconst.OperatorSigil + globalconst.OpLessThanOrEqual
	opIn  = globalconst.OperatorSigil + globalconst.OpIn
	opNin = globalconst.OperatorSigil + globalconst.OpNotIn
)

// ctxCheckEvery is how many documents are matched between context checks.
const ctxCheckEvery = 256

// Result is one page of documents and the number of documents that matched
// before the window was applied.
type Result struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
}

type entry struct {
	key string
	doc map[string]any
}

// Execute runs spec against col.
func Execute(ctx context.Context, col store.DataStore, spec pipeline.Spec) (Result, error) {
	m, err := newMatcher(spec.Filter, spec.Or)
	if err != nil {
		return Result{}, err
	}

	var raw map[string][]byte
	if keys, usedIndex := candidateKeys(col, spec.Filter); usedIndex {
		slog.Debug("Query is using index(es)", "candidates", len(keys))
		raw = col.GetMany(keys)
	} else {
		raw = col.GetAll()
	}

	matched := make([]entry, 0, len(raw))
	n := 0
	for key, value := range raw {
		if n++; n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		var doc map[string]any
		if err := json.Unmarshal(value, &doc); err != nil {
			slog.Warn("Skipping document that is not a JSON object", "key", key, "error", err)
			continue
		}
		if m.match(doc) {
			matched = append(matched, entry{key: key, doc: doc})
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sortEntries(matched, spec.Sort)
	page := applyWindow(matched, spec.Window)

	items := make([]map[string]any, 0, len(page))
	for _, e := range page {
		items = append(items, project(e.doc, spec.Projection))
	}
	return Result{Items: items, Total: len(matched)}, nil
}

// candidateKeys narrows the scan with indexes on top-level fields that carry
// an equality or range condition. Candidate sets are intersected. The
// returned keys are a superset of the matches; every candidate is still
// run through the full matcher.
func candidateKeys(col store.DataStore, filter map[string]any) ([]string, bool) {
	var keySets [][]string
	for field, cond := range filter {
		if strings.Contains(field, ".") || !col.HasIndex(field) {
			continue
		}
		if keys, ok := indexKeysFor(col, field, cond); ok {
			slog.Debug("Optimizer: using index", "field", field, "candidates", len(keys))
			keySets = append(keySets, keys)
		}
	}
	if len(keySets) == 0 {
		return nil, false
	}
	return intersectKeys(keySets), true
}

func indexKeysFor(col store.DataStore, field string, cond any) ([]string, bool) {
	obj, isObject := cond.(map[string]any)
	if !isObject {
		switch cond.(type) {
		case string, bool, float64, int, int64:
			return col.Lookup(field, cond)
		}
		return nil, false
	}

	if operand, ok := obj[opEq]; ok {
		return col.Lookup(field, operand)
	}

	var low, high any
	lowInclusive, highInclusive := false, false
	if v, ok := obj[opGt]; ok {
		low = v
	}
	if v, ok := obj[opGte]; ok {
		low, lowInclusive = v, true
	}
	if v, ok := obj[opLt]; ok {
		high = v
	}
	if v, ok := obj[opLte]; ok {
		high, highInclusive = v, true
	}
	if low == nil && high == nil {
		return nil, false
	}
	return col.LookupRange(field, low, high, lowInclusive, highInclusive)
}

// intersectKeys calculates the intersection of multiple key sets.
func intersectKeys(keySets [][]string) []string {
	current := make(map[string]struct{}, len(keySets[0]))
	for _, key := range keySets[0] {
		current[key] = struct{}{}
	}
	for _, set := range keySets[1:] {
		next := make(map[string]struct{})
		for _, key := range set {
			if _, found := current[key]; found {
				next[key] = struct{}{}
			}
		}
		current = next
	}

	keys := make([]string, 0, len(current))
	for key := range current {
		keys = append(keys, key)
	}
	return keys
}

// sortEntries orders by the given fields ("-" prefix = descending) and
// breaks ties on the document key, so pages are stable between requests.
func sortEntries(entries []entry, fields []string) {
	sort.Slice(entries, func(i, j int) bool {
		for _, field := range fields {
			desc := strings.HasPrefix(field, globalconst.DescPrefix)
			name := strings.TrimLeft(field, "-+")
			a, okA := lookup(entries[i].doc, name)
			b, okB := lookup(entries[j].doc, name)
			if cmp := sortCompare(a, b, okA, okB); cmp != 0 {
				if desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return entries[i].key < entries[j].key
	})
}

func applyWindow(entries []entry, w pipeline.Window) []entry {
	skip := max(w.Skip, 0)
	if skip >= len(entries) {
		return nil
	}
	entries = entries[skip:]
	if w.Limit > 0 && w.Limit < len(entries) {
		entries = entries[:w.Limit]
	}
	return entries
}

// project applies an inclusion list, or an exclusion list when every field
// is prefixed with "-". _id is kept by inclusion lists unless "-_id" is given.
func project(doc map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return doc
	}

	var include, exclude []string
	for _, f := range fields {
		if name, excluded := strings.CutPrefix(f, globalconst.DescPrefix); excluded {
			exclude = append(exclude, name)
		} else {
			include = append(include, f)
		}
	}

	if len(include) == 0 {
		out := maps.Clone(doc)
		for _, name := range exclude {
			delete(out, name)
		}
		return out
	}

	out := make(map[string]any, len(include)+1)
	if id, ok := doc[globalconst.ID]; ok && !slices.Contains(exclude, globalconst.ID) {
		out[globalconst.ID] = id
	}
	for _, name := range include {
		if v, ok := doc[name]; ok {
			out[name] = v
		} else if v, ok := lookup(doc, name); ok {
			setPath(out, name, v)
		}
	}
	return out
}

// setPath writes v under a dotted path, creating intermediate objects.
func setPath(out map[string]any, field string, v any) {
	parts := strings.Split(field, ".")
	node := out
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = v
}
