package pipeline

import "docquery/internal/globalconst"

// Sort reads "sort" ("price,-stock") and sets the sort order.
// An absent or empty value leaves the prior order untouched.
func Sort(params RawParams, spec Spec) Spec {
	fields := splitFieldList(params[globalconst.ParamSort])
	if len(fields) == 0 {
		return spec
	}
	out := spec
	out.Sort = fields
	return out
}
