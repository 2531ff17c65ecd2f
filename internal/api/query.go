// ./internal/api/query.go

package api

import (
	"log/slog"
	"net/http"
	"slices"

	"docquery/internal/executor"
	"docquery/internal/globalconst"
	"docquery/internal/pipeline"
)

// ListCollectionItemsHandler handles GET /collections/{name}/items. Query
// parameters go through every pipeline stage and the resulting spec is
// executed against the collection.
func (h *Handlers) ListCollectionItemsHandler(w http.ResponseWriter, r *http.Request) {
	if requestDone(w, r) {
		return
	}
	name, col, ok := h.existingCollection(w, r)
	if !ok {
		return
	}

	params := h.allowedParams(name, pipeline.FromValues(r.URL.Query()))
	spec := pipeline.New(pipeline.Spec{}, params).
		Filter().
		Sort().
		Search().
		Select().
		Paginate().
		Spec()

	slog.Debug("Executing query", "collection", name, "filter", spec.Filter, "sort", spec.SortString(),
		"fields", spec.ProjectionString(), "limit", spec.Window.Limit, "skip", spec.Window.Skip)
	result, err := executor.Execute(r.Context(), col, spec)
	if err != nil {
		status := statusForError(err)
		slog.Warn("Query failed", "collection", name, "status", status, "error", err)
		SendJSONResponse(w, false, err.Error(), nil, status)
		return
	}

	writeJSON(w, APIResponse{
		Success:    true,
		Data:       result.Items,
		Pagination: paginationOf(spec.Window, result.Total),
	}, http.StatusOK)
}

// allowedParams drops filter parameters on fields outside the collection's
// allowlist. Reserved parameters always pass.
func (h *Handlers) allowedParams(collection string, params pipeline.RawParams) pipeline.RawParams {
	allowed, restricted := h.AllowedFilters[collection]
	if !restricted {
		return params
	}
	out := make(pipeline.RawParams, len(params))
	for key, value := range params {
		if _, reserved := globalconst.ReservedParams[key]; reserved {
			out[key] = value
			continue
		}
		if !slices.Contains(allowed, pipeline.FilterField(key)) {
			slog.Warn("Dropping filter on field outside allowlist", "collection", collection, "param", key)
			continue
		}
		out[key] = value
	}
	return out
}

func paginationOf(w pipeline.Window, total int) *PaginationInfo {
	size := w.Limit
	info := &PaginationInfo{Page: 1, Size: size, Total: total}
	if size > 0 {
		info.Page = w.Skip/size + 1
		info.TotalPages = (total + size - 1) / size
	}
	return info
}
