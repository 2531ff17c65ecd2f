package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"docquery/internal/api"
	"docquery/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T) (*cli, *store.CollectionManager) {
	t.Helper()
	cm := store.NewCollectionManager(nil, 1)
	t.Cleanup(cm.Wait)
	srv := httptest.NewServer(api.NewHandlers(cm, nil).Routes())
	t.Cleanup(srv.Close)
	return newCLI(newAPIClient(srv.URL+"/", srv.Client())), cm
}

func TestGetCommandAndRawArgs(t *testing.T) {
	c := newCLI(nil)
	tests := []struct {
		input, cmd, args string
	}{
		{"index create price", "index create", "price"},
		{"index list", "index list", ""},
		{"collection delete books", "collection delete", "books"},
		{"list page=2&size=5", "list", "page=2&size=5"},
		{"set k1 {\"a\": 1}", "set", "k1 {\"a\": 1}"},
		{"help", "help", ""},
	}
	for _, tt := range tests {
		cmd, args := c.getCommandAndRawArgs(tt.input)
		assert.Equal(t, tt.cmd, cmd, tt.input)
		assert.Equal(t, tt.args, args, tt.input)
	}
}

func TestParseSetArgs(t *testing.T) {
	key, doc, err := parseSetArgs(`k1 {"name":"Ann"}`)
	require.NoError(t, err)
	assert.Equal(t, "k1", key)
	assert.JSONEq(t, `{"name":"Ann"}`, string(doc))

	key, _, err = parseSetArgs(`{"name":"Bob"}`)
	require.NoError(t, err)
	assert.Empty(t, key)

	_, _, err = parseSetArgs(`k1`)
	assert.Error(t, err)
	_, _, err = parseSetArgs(`k1 {broken`)
	assert.Error(t, err)
}

func TestListPath(t *testing.T) {
	path, err := listPath("products", "?price[gt]=10&page=2")
	require.NoError(t, err)
	assert.Equal(t, "/collections/products/items?page=2&price%5Bgt%5D=10", path)

	path, err = listPath("products", "")
	require.NoError(t, err)
	assert.Equal(t, "/collections/products/items", path)

	_, err = listPath("products", "a=%zz")
	assert.Error(t, err)
}

func TestTableRows(t *testing.T) {
	headers, rows, ok := tableRows([]byte(`[{"_id":"a","n":1},{"_id":"b","tags":["x"]}]`))
	require.True(t, ok)
	assert.Equal(t, []string{"_id", "n", "tags"}, headers)
	assert.Equal(t, []string{"a", "1", "(n/a)"}, rows[0])

	headers, rows, ok = tableRows([]byte(`{"b":2,"a":null}`))
	require.True(t, ok)
	assert.Equal(t, []string{"Key", "Value"}, headers)
	assert.Equal(t, [][]string{{"a", "(nil)"}, {"b", "2"}}, rows)

	headers, _, ok = tableRows([]byte(`["x","y"]`))
	require.True(t, ok)
	assert.Equal(t, []string{"Value"}, headers)

	_, _, ok = tableRows([]byte(`42`))
	assert.False(t, ok)
}

func TestCommandsAgainstServer(t *testing.T) {
	c, cm := newTestCLI(t)

	assert.Error(t, c.execute("list"), "no collection selected yet")
	require.NoError(t, c.execute("collection create products"))
	require.NoError(t, c.execute("use products"))
	require.NoError(t, c.execute(`set p1 {"name":"Red Runner","price":120}`))
	require.NoError(t, c.execute(`set p2 {"name":"Blue Boot","price":60}`))
	require.NoError(t, c.execute("index create price"))
	require.NoError(t, c.execute("list sort=-price&price[gt]=50"))
	require.NoError(t, c.execute("get p1"))
	require.NoError(t, c.execute("index list"))

	col := cm.GetCollection("products")
	assert.Equal(t, 2, col.Size())
	assert.Equal(t, []string{"price"}, col.ListIndexes())

	require.NoError(t, c.execute("delete p2"))
	assert.Error(t, c.execute("delete p2"))
	require.NoError(t, c.execute("index delete price"))
	assert.Equal(t, 1, col.Size())

	require.NoError(t, c.execute("collection delete products"))
	assert.Empty(t, c.currentCollection)
	assert.Error(t, c.execute("nonsense"))
}

func TestFetchCollectionNames(t *testing.T) {
	c, cm := newTestCLI(t)
	cm.GetCollection("alpha")
	cm.GetCollection("beta")

	assert.Equal(t, []string{"alpha", "beta"}, c.fetchCollectionNames("use "))
	assert.Equal(t, []string{"beta"}, c.fetchCollectionNames("use b"))
}

func TestAPIClientErrorStatus(t *testing.T) {
	c, _ := newTestCLI(t)
	resp, err := c.api.do(http.MethodGet, "/collections/ghost/items", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
