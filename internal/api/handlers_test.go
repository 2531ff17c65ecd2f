package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docquery/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, allow map[string][]string) (http.Handler, *store.CollectionManager) {
	t.Helper()
	cm := store.NewCollectionManager(nil, 2)
	t.Cleanup(cm.Wait)
	return NewHandlers(cm, allow).Routes(), cm
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func seedProducts(t *testing.T, h http.Handler) {
	t.Helper()
	docs := []string{
		`{"key":"p1","value":{"name":"Red Runner","category":"shoes","price":120,"rating":4.5}}`,
		`{"key":"p2","value":{"name":"red sandal","category":"shoes","price":60,"rating":4.8}}`,
		`{"key":"p3","value":{"name":"Blue Boot","category":"shoes","price":150,"rating":3.9}}`,
		`{"key":"p4","value":{"name":"Redwood Hat","category":"hats","price":35,"rating":4.1}}`,
		`{"key":"p6","value":{"name":"Red Flat","category":"shoes","price":60,"rating":4.2}}`,
	}
	for _, doc := range docs {
		code, _ := do(t, h, http.MethodPost, "/collections/products/items", doc)
		require.Equal(t, http.StatusCreated, code)
	}
}

func itemIDs(t *testing.T, data any) []string {
	t.Helper()
	items, ok := data.([]any)
	require.True(t, ok, "data is %T", data)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(map[string]any)["_id"].(string))
	}
	return out
}

func TestCollectionLifecycle(t *testing.T) {
	h, _ := newTestServer(t, nil)

	code, _ := do(t, h, http.MethodPost, "/collections/books", "")
	assert.Equal(t, http.StatusCreated, code)
	code, _ = do(t, h, http.MethodPost, "/collections/books", "")
	assert.Equal(t, http.StatusOK, code)

	code, resp := do(t, h, http.MethodGet, "/collections", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"books"}, resp.Data)

	code, _ = do(t, h, http.MethodDelete, "/collections/books", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodDelete, "/collections/books", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvalidCollectionName(t *testing.T) {
	h, _ := newTestServer(t, nil)
	code, resp := do(t, h, http.MethodPost, "/collections/bad.name", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
}

func TestSetAndGetItem(t *testing.T) {
	h, _ := newTestServer(t, nil)

	code, resp := do(t, h, http.MethodPost, "/collections/users/items", `{"value":{"name":"Ann","_id":"spoofed"}}`)
	require.Equal(t, http.StatusCreated, code)
	id := resp.Data.(map[string]any)["_id"].(string)
	assert.Len(t, id, 36)

	code, resp = do(t, h, http.MethodGet, "/collections/users/items/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"_id": id, "name": "Ann"}, resp.Data)

	code, _ = do(t, h, http.MethodGet, "/collections/users/items/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSetItemRejectsBadBodies(t *testing.T) {
	h, _ := newTestServer(t, nil)
	for _, body := range []string{
		`not json`,
		`{"value":{"a":1},"extra":true}`,
		`{"key":"k"}`,
		`{"key":"k","value":[1,2]}`,
		`{"key":"k","value":null}`,
		`{"key":"k","value":{},"ttl_seconds":-1}`,
	} {
		code, _ := do(t, h, http.MethodPost, "/collections/users/items", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
	}
}

func TestDeleteItem(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	code, _ := do(t, h, http.MethodDelete, "/collections/products/items/p1", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodDelete, "/collections/products/items/p1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListItems_CombinedQuery(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	code, resp := do(t, h, http.MethodGet,
		"/collections/products/items?page=1&size=2&sort=price,-rating&search=red&fields=name,price&category=shoes", "")
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, []string{"p2", "p6"}, itemIDs(t, resp.Data))
	assert.Equal(t, &PaginationInfo{Page: 1, Size: 2, Total: 3, TotalPages: 2}, resp.Pagination)

	first := resp.Data.([]any)[0].(map[string]any)
	assert.ElementsMatch(t, []string{"_id", "name", "price"}, keysOf(first))
}

func TestListItems_OperatorFilter(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	code, resp := do(t, h, http.MethodGet, "/collections/products/items?size=10&sort=_id&price[gte]=60&price[lt]=150", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"p1", "p2", "p6"}, itemIDs(t, resp.Data))
}

func TestListItems_DefaultPageSize(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	_, resp := do(t, h, http.MethodGet, "/collections/products/items", "")
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, &PaginationInfo{Page: 1, Size: 2, Total: 5, TotalPages: 3}, resp.Pagination)
}

func TestListItems_SearchIsLiteral(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	code, resp := do(t, h, http.MethodGet, "/collections/products/items?search=(", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, resp.Pagination.Total)
}

func TestListItems_MissingCollection(t *testing.T) {
	h, _ := newTestServer(t, nil)
	code, _ := do(t, h, http.MethodGet, "/collections/ghost/items", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListItems_Allowlist(t *testing.T) {
	h, _ := newTestServer(t, map[string][]string{"products": {"category"}})
	seedProducts(t, h)

	_, resp := do(t, h, http.MethodGet, "/collections/products/items?size=10&category=shoes&price[gt]=100", "")
	assert.Equal(t, 4, resp.Pagination.Total)
}

func TestListItems_AllowlistUsesFilterField(t *testing.T) {
	h, _ := newTestServer(t, map[string][]string{"products": {"price"}})
	seedProducts(t, h)

	_, resp := do(t, h, http.MethodGet, "/collections/products/items?size=10&price[gt=1", "")
	assert.Equal(t, 5, resp.Pagination.Total)

	_, resp = do(t, h, http.MethodGet, "/collections/products/items?size=10&price[gt]=100", "")
	assert.Equal(t, 2, resp.Pagination.Total)
}

func TestListItems_CancelledRequest(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/collections/products/items", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPut, "/collections", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestIndexEndpoints(t *testing.T) {
	h, _ := newTestServer(t, nil)
	seedProducts(t, h)

	code, _ := do(t, h, http.MethodPost, "/collections/products/indexes", `{"field":"price"}`)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = do(t, h, http.MethodPost, "/collections/products/indexes", `{"field":"price"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodPost, "/collections/products/indexes", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	_, resp := do(t, h, http.MethodGet, "/collections/products/indexes", "")
	assert.Equal(t, []any{"price"}, resp.Data)

	code, resp = do(t, h, http.MethodGet, "/collections/products/items?size=10&sort=_id&price=60", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"p2", "p6"}, itemIDs(t, resp.Data))

	code, _ = do(t, h, http.MethodDelete, "/collections/products/indexes/price", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodDelete, "/collections/products/indexes/price", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusForError(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusForError(assert.AnError))
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
