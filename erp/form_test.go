package erp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeForm(t *testing.T) {
	payload := json.RawMessage(`{"action":"update_stock","key":"k","supplier_id":"7","global_ids":["g1",2],` +
		`"item":{"sku":"A1","price":10.50,"active":true,"note":null,"tags":[],"dims":{"w":1}}}`)

	values, err := EncodeForm(payload)
	require.NoError(t, err)

	assert.Equal(t, "update_stock", values.Get("action"))
	assert.Equal(t, "g1", values.Get("global_ids[0]"))
	assert.Equal(t, "2", values.Get("global_ids[1]"))
	assert.Equal(t, "A1", values.Get("item[sku]"))
	assert.Equal(t, "10.50", values.Get("item[price]"))
	assert.Equal(t, "true", values.Get("item[active]"))
	assert.Equal(t, "1", values.Get("item[dims][w]"))
	assert.Contains(t, values, "item[note]")
	assert.Equal(t, "", values.Get("item[note]"))
	assert.NotContains(t, values, "item[tags]")
}

func TestEncodeFormRejectsNonObject(t *testing.T) {
	_, err := EncodeForm(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
