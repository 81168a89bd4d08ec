package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/velmie/stockrelay"
)

var errNotObject = errors.New("not a JSON object")

// RawItem is a decoded JSON object that remembers the order of its top-level keys.
// Nested values are decoded with json.Number for numbers.
type RawItem struct {
	keys   []string
	values map[string]any
}

// NewRawItem builds a RawItem from alternating key/value pairs.
func NewRawItem(pairs ...any) RawItem {
	item := RawItem{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key := fmt.Sprint(pairs[i])
		if _, ok := item.values[key]; !ok {
			item.keys = append(item.keys, key)
		}
		item.values[key] = pairs[i+1]
	}

	return item
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawItem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	r.keys = r.keys[:0]
	r.values = make(map[string]any)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if _, seen := r.values[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("trailing data after object")
	}

	return nil
}

// Keys returns the top-level keys in document order.
func (r RawItem) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of top-level keys.
func (r RawItem) Len() int {
	return len(r.keys)
}

// Get returns the top-level value stored under key.
func (r RawItem) Get(key string) (any, bool) {
	v, ok := r.values[key]

	return v, ok
}

// Lookup resolves a dot path. Numeric segments index arrays.
func (r RawItem) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	current, ok := r.values[segments[0]]
	if !ok {
		return nil, false
	}

	return walk(current, segments[1:])
}

// Item returns a shallow copy of the top-level values as a canonical item.
func (r RawItem) Item() stockrelay.Item {
	out := make(stockrelay.Item, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}

	return out
}

func walk(current any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// scalarString renders identifier-like values. Objects, arrays and null are not scalars.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}
