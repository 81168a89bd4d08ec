package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Envelope keys recognized when no list root is configured.
var (
	listKeys     = []string{"items", "entries", "itens"}
	globalIDKeys = []string{"global_ids", "D070_Id"}
)

const envelopeSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": ["object", "array"],
	"properties": {
		"simulate_only": {
			"anyOf": [
				{"type": "boolean"},
				{"enum": ["true", "false"]}
			]
		},
		"payload": {"type": ["object", "array"]}
	}
}`

var compileEnvelope = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("envelope.json", doc); err != nil {
		return nil, err
	}

	return c.Compile("envelope.json")
})

// Envelope is a batch request resolved into one canonical shape.
type Envelope struct {
	Items        []RawItem
	GlobalIDs    []string
	SimulateOnly bool
	// Dropped counts list elements that were not JSON objects.
	Dropped int
}

// ParseEnvelope validates body and extracts its item list.
//
// With listRoot set, the list is the value at that dot path of the body; a single object is
// treated as a one-element list. Otherwise the list is taken from "payload" when present, or the
// body itself: an array is the list and an object yields its items, entries or itens array.
func ParseEnvelope(body []byte, listRoot string) (Envelope, error) {
	if err := validateEnvelope(body); err != nil {
		return Envelope{}, err
	}

	var env Envelope
	var top map[string]json.RawMessage
	if firstByte(body) == '{' {
		if err := json.Unmarshal(body, &top); err != nil {
			return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
		}
		env.SimulateOnly = parseSimulate(top["simulate_only"])
	}

	root := json.RawMessage(body)
	if raw, ok := top["payload"]; ok {
		root = raw
	}
	env.GlobalIDs = globalIDs(root, top)

	var list json.RawMessage
	if listRoot != "" {
		found, ok := lookupRaw(body, strings.Split(listRoot, "."))
		if !ok {
			return Envelope{}, fmt.Errorf("%w: %s not found", ErrNoItemList, listRoot)
		}
		list = found
		if firstByte(list) == '{' {
			list = json.RawMessage("[" + string(list) + "]")
		}
	} else {
		list = extractList(root)
	}
	if firstByte(list) != '[' {
		return Envelope{}, ErrNoItemList
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(list, &elems); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrNoItemList, err)
	}
	env.Items = make([]RawItem, 0, len(elems))
	for _, elem := range elems {
		var item RawItem
		if err := json.Unmarshal(elem, &item); err != nil {
			env.Dropped++

			continue
		}
		env.Items = append(env.Items, item)
	}

	return env, nil
}

func validateEnvelope(body []byte) error {
	schema, err := compileEnvelope()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	return nil
}

func extractList(root json.RawMessage) json.RawMessage {
	switch firstByte(root) {
	case '[':
		return root
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(root, &obj); err != nil {
			return nil
		}
		for _, key := range listKeys {
			if raw, ok := obj[key]; ok && firstByte(raw) == '[' {
				return raw
			}
		}
	}

	return nil
}

func lookupRaw(doc json.RawMessage, segments []string) (json.RawMessage, bool) {
	current := doc
	for _, seg := range segments {
		switch firstByte(current) {
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(current, &obj); err != nil {
				return nil, false
			}
			next, ok := obj[seg]
			if !ok {
				return nil, false
			}
			current = next
		case '[':
			var arr []json.RawMessage
			if err := json.Unmarshal(current, &arr); err != nil {
				return nil, false
			}
			idx, ok := parseIndex(seg, len(arr))
			if !ok {
				return nil, false
			}
			current = arr[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

func parseIndex(seg string, n int) (int, bool) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}

	return idx, true
}

// globalIDs reads correlation ids from the payload object, then from the top-level body.
func globalIDs(root json.RawMessage, top map[string]json.RawMessage) []string {
	sources := make([]map[string]json.RawMessage, 0, 2)
	if firstByte(root) == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(root, &obj); err == nil {
			sources = append(sources, obj)
		}
	}
	if top != nil {
		sources = append(sources, top)
	}

	for _, src := range sources {
		for _, key := range globalIDKeys {
			raw, ok := src[key]
			if !ok {
				continue
			}
			if ids := stringList(raw); len(ids) > 0 {
				return ids
			}
		}
	}

	return nil
}

func stringList(raw json.RawMessage) []string {
	if firstByte(raw) == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil
		}
		out := make([]string, 0, len(elems))
		for _, elem := range elems {
			if s, ok := rawScalar(elem); ok {
				out = append(out, s)
			}
		}

		return out
	}
	if s, ok := rawScalar(raw); ok {
		return []string{s}
	}

	return nil
}

func rawScalar(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	return scalarString(v)
}

func parseSimulate(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true"
	}

	return false
}

func firstByte(raw []byte) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}

	return trimmed[0]
}
