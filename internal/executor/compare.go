package executor

import (
	stdjson "encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// compare orders two scalar values. Numbers (and numeric strings) compare
// numerically, other strings and booleans compare as text. The boolean is
// false when the values are not comparable: a number against text, or an
// object, array or null on either side.
func compare(a, b any) (int, bool) {
	numA, okA := toFloat64(a)
	numB, okB := toFloat64(b)
	switch {
	case okA && okB:
		switch {
		case numA < numB:
			return -1, true
		case numA > numB:
			return 1, true
		default:
			return 0, true
		}
	case okA || okB:
		return 0, false
	}

	strA, okA := toText(a)
	strB, okB := toText(b)
	if !okA || !okB {
		return 0, false
	}
	return strings.Compare(strA, strB), true
}

func equal(a, b any) bool {
	cmp, ok := compare(a, b)
	return ok && cmp == 0
}

// toFloat64 attempts to convert a value to float64.
func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case jsoniter.Number:
		f, err := v.Float64()
		return f, err == nil
	case stdjson.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func toText(val any) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// sortCompare is a total order used for sorting: missing values first,
// then numbers, then text, then anything else by its printed form.
func sortCompare(a, b any, okA, okB bool) int {
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	if cmp, ok := compare(a, b); ok {
		return cmp
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func rank(v any) int {
	if _, ok := toFloat64(v); ok {
		return 1
	}
	if _, ok := toText(v); ok {
		return 2
	}
	return 3
}
