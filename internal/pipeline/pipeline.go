package pipeline

import "maps"

// Stage is one independent transformation of a Spec.
type Stage func(params RawParams, spec Spec) Spec

// AllStages lists every stage. Order does not affect the result.
var AllStages = []Stage{Filter, Sort, Select, Search, Paginate}

// Fold applies the stages left to right, starting from base.
func Fold(base Spec, params RawParams, stages ...Stage) Spec {
	spec := base
	for _, stage := range stages {
		spec = stage(params, spec)
	}
	return spec
}

// Pipeline is a chainable builder over Fold for a single request.
// It must not be shared between requests.
type Pipeline struct {
	params RawParams
	spec   Spec
}

// New binds a pipeline to a base Spec and the request's parameters.
// The parameters are copied, so later changes to the map have no effect.
func New(base Spec, params RawParams) *Pipeline {
	return &Pipeline{
		params: maps.Clone(params),
		spec:   base,
	}
}

// Apply runs an arbitrary stage and returns the same pipeline.
func (p *Pipeline) Apply(stage Stage) *Pipeline {
	p.spec = stage(p.params, p.spec)
	return p
}

// Paginate applies the Paginate stage.
func (p *Pipeline) Paginate() *Pipeline { return p.Apply(Paginate) }

// Filter applies the Filter stage.
func (p *Pipeline) Filter() *Pipeline { return p.Apply(Filter) }

// Sort applies the Sort stage.
func (p *Pipeline) Sort() *Pipeline { return p.Apply(Sort) }

// Search applies the Search stage.
func (p *Pipeline) Search() *Pipeline { return p.Apply(Search) }

// Select applies the Select (projection) stage.
func (p *Pipeline) Select() *Pipeline { return p.Apply(Select) }

// Spec returns the query accumulated so far.
func (p *Pipeline) Spec() Spec {
	return p.spec
}
