package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/velmie/stockrelay"
)

// Apply maps raw through the supplier rules. Without rules the raw item is used as is.
// Rules whose source path is missing are skipped.
func Apply(m stockrelay.Mapping, raw RawItem) stockrelay.Item {
	if len(m.Rules) == 0 {
		return raw.Item()
	}

	item := make(stockrelay.Item, len(m.Rules))
	for _, rule := range m.Rules {
		if rule.To == "" {
			continue
		}
		if rule.From == "" {
			if rule.Value != nil {
				item[rule.To] = rule.Value
			}

			continue
		}
		if v, ok := raw.Lookup(rule.From); ok && v != nil {
			item[rule.To] = v
		}
	}

	return item
}

// Sanitize returns a copy of item without the excluded fields.
func Sanitize(item stockrelay.Item, excluded map[string]struct{}) stockrelay.Item {
	out := make(stockrelay.Item, len(item))
	for k, v := range item {
		if _, skip := excluded[k]; skip {
			continue
		}
		out[k] = v
	}

	return out
}

// CanonicalJSON serializes item with sorted keys and without HTML escaping.
// Numbers decoded as json.Number keep their original text.
func CanonicalJSON(item stockrelay.Item) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return "", err
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// CacheKey builds the state key of an item: f:<supplier>:g:<global ids or 0>:id:<identifier>.
func CacheKey(supplierID string, globalIDs []string, identifier string) string {
	globals := "0"
	if len(globalIDs) > 0 {
		globals = strings.Join(globalIDs, ",")
	}

	return "f:" + supplierID + ":g:" + globals + ":id:" + identifier
}
