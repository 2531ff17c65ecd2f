// ./internal/pipeline/filter.go

package pipeline

import (
	"maps"
	"slices"
	"strings"

	"docquery/internal/globalconst"
)

// maxConditionDepth bounds how many bracket segments a filter key may carry.
// Deeper keys are kept verbatim as a flat field name.
const maxConditionDepth = 5

// Filter turns every non-reserved parameter into a filter condition and
// merges the result into the predicate. Bracketed keys build nested
// condition objects ("price[gt]=100" becomes {price: {gt: "100"}}), and
// operator keys inside them are renamed to their store-native form
// ({price: {$gt: "100"}}). Keys already present in the predicate are
// replaced; others are kept.
func Filter(params RawParams, spec Spec) Spec {
	conditions := buildConditions(params)
	if len(conditions) == 0 {
		return spec
	}

	out := spec
	out.Filter = make(map[string]any, len(spec.Filter)+len(conditions))
	maps.Copy(out.Filter, spec.Filter)
	for field, cond := range conditions {
		out.Filter[field] = translateOperators(cond)
	}
	return out
}

// buildConditions expands the non-reserved parameters into a condition tree.
// Keys are visited in sorted order so the tree does not depend on map order.
// When a literal and a nested object land on the same path, the object wins.
func buildConditions(params RawParams) map[string]any {
	keys := make([]string, 0, len(params))
	for key := range params {
		if _, reserved := globalconst.ReservedParams[key]; reserved {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	root := make(map[string]any, len(keys))
	for _, key := range keys {
		insertPath(root, splitConditionKey(key), params[key])
	}
	return root
}

func insertPath(node map[string]any, path []string, value string) {
	for i, segment := range path {
		if i == len(path)-1 {
			if _, isObject := node[segment].(map[string]any); !isObject {
				node[segment] = value
			}
			return
		}
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[segment] = child
		}
		node = child
	}
}

// FilterField returns the top-level field a filter parameter applies to:
// "price" for "price[gt]", and the whole key when the brackets are malformed.
func FilterField(key string) string {
	return splitConditionKey(key)[0]
}

// splitConditionKey splits "a[b][c]" into ["a", "b", "c"]. Anything that is
// not well-formed bracket notation is returned as a single segment.
func splitConditionKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}

	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end <= 1 {
			return []string{key}
		}
		segment := rest[1:end]
		if strings.ContainsAny(segment, "[") {
			return []string{key}
		}
		path = append(path, segment)
		rest = rest[end+1:]
	}

	if len(path)-1 > maxConditionDepth {
		return []string{key}
	}
	return path
}

// translateOperators walks a condition and renames every object key that is
// exactly one of the comparison keywords to its sigil-prefixed form. Field
// names, values and keys that merely contain a keyword are left untouched.
// The input is not modified.
func translateOperators(cond any) any {
	obj, ok := cond.(map[string]any)
	if !ok {
		return cond
	}
	out := make(map[string]any, len(obj))
	for key, val := range obj {
		if _, isOperator := globalconst.FilterOperators[key]; isOperator {
			key = globalconst.OperatorSigil + key
		}
		out[key] = translateOperators(val)
	}
	return out
}
