package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawItemKeepsKeyOrder(t *testing.T) {
	var item RawItem
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":"Z1","alpha":2,"mid":{"a":[1,{"b":"deep"}]}}`), &item))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, item.Keys())
	v, ok := item.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, json.Number("2"), v)

	deep, ok := item.Lookup("mid.a.1.b")
	require.True(t, ok)
	assert.Equal(t, "deep", deep)

	_, ok = item.Lookup("mid.a.5")
	assert.False(t, ok)
	_, ok = item.Lookup("mid.missing")
	assert.False(t, ok)
	_, ok = item.Lookup("")
	assert.False(t, ok)
}

func TestRawItemRejectsNonObject(t *testing.T) {
	var item RawItem
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &item))
	assert.Error(t, json.Unmarshal([]byte(`"sku"`), &item))
}

func TestRawItemDuplicateKey(t *testing.T) {
	var item RawItem
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":2,"a":3}`), &item))

	assert.Equal(t, []string{"a", "b"}, item.Keys())
	v, _ := item.Get("a")
	assert.Equal(t, json.Number("3"), v)
}

func TestNewRawItem(t *testing.T) {
	item := NewRawItem("sku", "A1", "price", 10)

	assert.Equal(t, []string{"sku", "price"}, item.Keys())
	assert.Equal(t, 2, item.Len())
}
