package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func combinedParams() RawParams {
	return RawParams{
		"page":     "2",
		"size":     "5",
		"sort":     "price,-rating",
		"search":   "red",
		"fields":   "name,price",
		"category": "shoes",
	}
}

func TestPipeline_CombinedScenario(t *testing.T) {
	spec := New(Spec{}, combinedParams()).
		Filter().
		Sort().
		Select().
		Search().
		Paginate().
		Spec()

	assert.Equal(t, Window{Limit: 5, Skip: 5}, spec.Window)
	assert.Equal(t, "price -rating", spec.SortString())
	assert.Equal(t, "name price", spec.ProjectionString())
	assert.Equal(t, map[string]any{"category": "shoes"}, spec.Filter)
	assert.Equal(t, []map[string]any{
		{"name": map[string]any{"$regex": "red", "$options": "i"}},
	}, spec.Or)
}

func TestPipeline_StagesCommute(t *testing.T) {
	params := combinedParams()
	params["price[gte]"] = "10"
	want := Fold(Spec{}, params, AllStages...)

	orders := [][]Stage{
		{Paginate, Filter, Sort, Search, Select},
		{Select, Search, Sort, Filter, Paginate},
		{Search, Paginate, Select, Filter, Sort},
		{Sort, Select, Paginate, Search, Filter},
	}
	for i, order := range orders {
		assert.Equal(t, want, Fold(Spec{}, params, order...), "order %d", i)
	}
}

func TestPipeline_SubsetOnlyTouchesItsParts(t *testing.T) {
	spec := New(Spec{}, combinedParams()).Sort().Spec()
	assert.Equal(t, Spec{Sort: []string{"price", "-rating"}}, spec)
}

func TestPipeline_ChainingReturnsSameInstance(t *testing.T) {
	p := New(Spec{}, RawParams{})
	assert.Same(t, p, p.Paginate())
	assert.Same(t, p, p.Filter().Sort().Search().Select())
}

func TestPipeline_CopiesParams(t *testing.T) {
	params := RawParams{"sort": "name"}
	p := New(Spec{}, params)
	params["sort"] = "-name"

	assert.Equal(t, "name", p.Sort().Spec().SortString())
}

func TestPipeline_StartsFromBase(t *testing.T) {
	base := Spec{Filter: map[string]any{"tenant": "acme"}, Sort: []string{"-createdAt"}}
	spec := New(base, RawParams{"color": "red"}).Filter().Sort().Spec()

	assert.Equal(t, map[string]any{"tenant": "acme", "color": "red"}, spec.Filter)
	assert.Equal(t, []string{"-createdAt"}, spec.Sort)
	assert.Equal(t, map[string]any{"tenant": "acme"}, base.Filter)
}

func TestPipeline_ApplyCustomStage(t *testing.T) {
	pinned := func(_ RawParams, s Spec) Spec {
		s.Window = Window{Limit: 1}
		return s
	}
	spec := New(Spec{}, RawParams{"size": "9"}).Paginate().Apply(pinned).Spec()
	assert.Equal(t, Window{Limit: 1}, spec.Window)
}
