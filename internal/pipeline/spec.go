package pipeline

import "strings"

// Window is the result window of a query. A zero Limit means no limit.
type Window struct {
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
}

// Spec is the accumulated, executable query built by the stages.
//
// Filter maps a field to either a literal value (equality) or an operator
// object with store-native keys such as "$gt". Sort and Projection hold
// field names, a leading "-" meaning descending or excluded. Or holds the
// disjunctive clauses set by the search stage.
type Spec struct {
	Filter     map[string]any   `json:"filter,omitempty"`
	Sort       []string         `json:"sort,omitempty"`
	Window     Window           `json:"window"`
	Projection []string         `json:"projection,omitempty"`
	Or         []map[string]any `json:"$or,omitempty"`
}

// SortString renders the sort order in the store's space-separated syntax.
func (s Spec) SortString() string {
	return strings.Join(s.Sort, " ")
}

// ProjectionString renders the projection in the store's space-separated syntax.
func (s Spec) ProjectionString() string {
	return strings.Join(s.Projection, " ")
}
