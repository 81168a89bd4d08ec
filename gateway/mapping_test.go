package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmie/stockrelay"
)

func decodeRaw(t *testing.T, body string) RawItem {
	t.Helper()
	var item RawItem
	require.NoError(t, json.Unmarshal([]byte(body), &item))

	return item
}

func TestApplyRules(t *testing.T) {
	mapping := stockrelay.Mapping{Rules: []stockrelay.FieldRule{
		{From: "codigo", To: "sku"},
		{From: "valores.preco", To: "price"},
		{From: "estoque.0.qtd", To: "stock"},
		{From: "missing", To: "ghost"},
		{To: "updated_at", Value: stockrelay.PlaceholderDynamicTimestamp, ExcludeFromCache: true},
	}}
	raw := decodeRaw(t, `{"codigo":"A1","valores":{"preco":10.50},"estoque":[{"qtd":3}]}`)

	item := Apply(mapping, raw)

	assert.Equal(t, stockrelay.Item{
		"sku":        "A1",
		"price":      json.Number("10.50"),
		"stock":      json.Number("3"),
		"updated_at": stockrelay.PlaceholderDynamicTimestamp,
	}, item)
}

func TestApplyWithoutRulesCopiesRaw(t *testing.T) {
	raw := decodeRaw(t, `{"sku":"A1","price":10}`)

	item := Apply(stockrelay.Mapping{}, raw)

	assert.Equal(t, stockrelay.Item{"sku": "A1", "price": json.Number("10")}, item)
}

func TestSanitizeAndCanonicalJSON(t *testing.T) {
	item := stockrelay.Item{"sku": "A1", "price": json.Number("10.50"), "note": "<b>", "ts": "DYNAMIC_TIMESTAMP"}

	clean := Sanitize(item, map[string]struct{}{"ts": {}})
	value, err := CanonicalJSON(clean)
	require.NoError(t, err)

	assert.Equal(t, `{"note":"<b>","price":10.50,"sku":"A1"}`, value)
	assert.Contains(t, item, "ts")
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "f:7:g:0:id:A1", CacheKey("7", nil, "A1"))
	assert.Equal(t, "f:7:g:g1,g2:id:A1", CacheKey("7", []string{"g1", "g2"}, "A1"))
}

func TestIdentifierStrategies(t *testing.T) {
	cand := Candidate{
		Keys:   []string{"ean", "sku"},
		Fields: stockrelay.Item{"sku": "A1", "ean": json.Number("789")},
	}

	id, ok := FieldIdentifier("sku").Identify(cand)
	assert.True(t, ok)
	assert.Equal(t, "A1", id)

	id, ok = FirstKeyIdentifier{}.Identify(cand)
	assert.True(t, ok)
	assert.Equal(t, "789", id)

	_, ok = FieldIdentifier("missing").Identify(cand)
	assert.False(t, ok)

	id, ok = ChainIdentifier{FieldIdentifier("missing"), FirstKeyIdentifier{}}.Identify(cand)
	assert.True(t, ok)
	assert.Equal(t, "789", id)

	_, ok = FirstKeyIdentifier{}.Identify(Candidate{})
	assert.False(t, ok)

	id, ok = FirstKeyIdentifier{}.Identify(Candidate{Keys: []string{"sku"}, Fields: stockrelay.Item{"sku": map[string]any{"nested": 1}}})
	assert.True(t, ok)
	assert.Empty(t, id)
}

func TestChainStopsAtPresentEmptyField(t *testing.T) {
	cand := Candidate{Keys: []string{"name", "sku"}, Fields: stockrelay.Item{"name": "W", "sku": ""}}

	id, ok := ChainIdentifier{FieldIdentifier("sku"), FirstKeyIdentifier{}}.Identify(cand)
	assert.True(t, ok)
	assert.Empty(t, id)
}

func TestNewCandidateOrder(t *testing.T) {
	raw := decodeRaw(t, `{"seen":"t1","code":"C1","qty":3}`)
	m := stockrelay.Mapping{Rules: []stockrelay.FieldRule{
		{From: "seen", To: "seen_at", ExcludeFromCache: true},
		{From: "code", To: "code"},
		{From: "qty", To: "qty"},
		{From: "code", To: "code"},
	}}
	state := Sanitize(Apply(m, raw), m.ExcludedFields())

	cand := newCandidate(m, raw, state)
	assert.Equal(t, []string{"code", "qty"}, cand.Keys)

	plain := decodeRaw(t, `{"codigo":"A1","sku":"S9"}`)
	cand = newCandidate(stockrelay.Mapping{}, plain, plain.Item())
	assert.Equal(t, []string{"codigo", "sku"}, cand.Keys)
}

func TestIdentifierForMapping(t *testing.T) {
	raw := decodeRaw(t, `{"codigo":"A1","sku":"S9"}`)
	cand := newCandidate(stockrelay.Mapping{}, raw, raw.Item())

	id, ok := identifierFor(stockrelay.Mapping{}).Identify(cand)
	assert.True(t, ok)
	assert.Equal(t, "S9", id)

	id, ok = identifierFor(stockrelay.Mapping{IdentifierField: "codigo"}).Identify(cand)
	assert.True(t, ok)
	assert.Equal(t, "A1", id)

	noSku := decodeRaw(t, `{"codigo":"A1"}`)
	id, ok = identifierFor(stockrelay.Mapping{}).Identify(newCandidate(stockrelay.Mapping{}, noSku, noSku.Item()))
	assert.True(t, ok)
	assert.Equal(t, "A1", id)
}
