package pipeline

import "docquery/internal/globalconst"

// Select reads "fields" ("name,price" or "-secret") and sets the projection.
// An absent or empty value keeps every field.
func Select(params RawParams, spec Spec) Spec {
	fields := splitFieldList(params[globalconst.ParamFields])
	if len(fields) == 0 {
		return spec
	}
	out := spec
	out.Projection = fields
	return out
}
