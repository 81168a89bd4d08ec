package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// EncodeForm flattens a JSON object into form values using bracket notation.
// Null values encode as empty strings; empty arrays and objects are omitted.
func EncodeForm(payload json.RawMessage) (url.Values, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	values := make(url.Values)
	for key, v := range root {
		flatten(values, key, v)
	}

	return values, nil
}

func flatten(values url.Values, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(values, prefix+"["+k+"]", child)
		}
	case []any:
		for i, child := range val {
			flatten(values, prefix+"["+strconv.Itoa(i)+"]", child)
		}
	case nil:
		values.Add(prefix, "")
	case string:
		values.Add(prefix, val)
	case json.Number:
		values.Add(prefix, val.String())
	case bool:
		values.Add(prefix, strconv.FormatBool(val))
	default:
		values.Add(prefix, fmt.Sprint(val))
	}
}
