package pipeline

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort(t *testing.T) {
	got := Sort(RawParams{"sort": "price,-stock"}, Spec{})
	assert.Equal(t, []string{"price", "-stock"}, got.Sort)
	assert.Equal(t, "price -stock", got.SortString())

	spaced := Sort(RawParams{"sort": " price, -stock ,"}, Spec{})
	assert.Equal(t, "price -stock", spaced.SortString())
}

func TestSort_AbsentKeepsPriorOrder(t *testing.T) {
	base := Spec{Sort: []string{"-createdAt"}}
	assert.Equal(t, base, Sort(RawParams{}, base))
	assert.Equal(t, base, Sort(RawParams{"sort": ""}, base))
	assert.Equal(t, base, Sort(RawParams{"sort": " , "}, base))
}

func TestSelect(t *testing.T) {
	got := Select(RawParams{"fields": "name,price"}, Spec{})
	assert.Equal(t, "name price", got.ProjectionString())

	excl := Select(RawParams{"fields": "-secret"}, Spec{})
	assert.Equal(t, []string{"-secret"}, excl.Projection)

	assert.Nil(t, Select(RawParams{}, Spec{}).Projection)
}

func TestSearch(t *testing.T) {
	got := Search(RawParams{"search": "shoe"}, Spec{})
	require.Len(t, got.Or, 1)

	cond, ok := got.Or[0]["name"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shoe", cond["$regex"])
	assert.Equal(t, "i", cond["$options"])

	re := regexp.MustCompile("(?i)" + cond["$regex"].(string))
	assert.True(t, re.MatchString("Red SHOEs"))
	assert.False(t, re.MatchString("boots"))
}

func TestSearch_AbsentAddsNothing(t *testing.T) {
	assert.Nil(t, Search(RawParams{}, Spec{}).Or)
	assert.Nil(t, Search(RawParams{"search": ""}, Spec{}).Or)
}

func TestSearch_TermIsLiteral(t *testing.T) {
	got := Search(RawParams{"search": "a.b*("}, Spec{})
	cond := got.Or[0]["name"].(map[string]any)
	re := regexp.MustCompile("(?i)" + cond["$regex"].(string))
	assert.True(t, re.MatchString("xa.b*(y"))
	assert.False(t, re.MatchString("axbbb"))
}

func TestSearch_Idempotent(t *testing.T) {
	params := RawParams{"search": "red"}
	once := Search(params, Spec{})
	twice := Search(params, once)
	assert.Equal(t, once.Or, twice.Or)
}

func TestFromValues(t *testing.T) {
	values, err := url.ParseQuery("page=2&price[gt]=10&tag=a&tag=b&empty=")
	require.NoError(t, err)

	got := FromValues(values)
	assert.Equal(t, RawParams{"page": "2", "price[gt]": "10", "tag": "a", "empty": ""}, got)
}
