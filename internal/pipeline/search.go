package pipeline

import (
	"regexp"

	"docquery/internal/globalconst"
)

// Search reads "search" and sets a disjunctive clause matching the name
// field by case-insensitive substring. The term is matched literally.
// Re-applying the stage replaces the clause instead of stacking another one.
func Search(params RawParams, spec Spec) Spec {
	term := params[globalconst.ParamSearch]
	if term == "" {
		return spec
	}
	out := spec
	out.Or = []map[string]any{
		{
			globalconst.SearchField: map[string]any{
				globalconst.StoreRegex:   regexp.QuoteMeta(term),
				globalconst.StoreOptions: "i",
			},
		},
	}
	return out
}
