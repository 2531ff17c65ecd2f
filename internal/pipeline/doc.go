// Package pipeline translates raw list-endpoint query parameters into a
// QuerySpec the executor can run against a collection.
//
// Five stages are available: Paginate, Filter, Sort, Search and Select.
// Each is a pure function from (RawParams, Spec) to a new Spec. Stages read
// disjoint parameter names, so any subset applied in any order yields the
// same Spec. Malformed input never fails a stage: pagination falls back to
// defaults and the other stages become no-ops.
//
// A Spec is owned by a single request. Stages never modify the Spec they are
// given; unchanged parts are shared between the input and the output value.
package pipeline
