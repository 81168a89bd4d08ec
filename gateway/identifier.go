package gateway

import "github.com/velmie/stockrelay"

// DefaultIdentifierField is the canonical field tried first when a supplier configures none.
const DefaultIdentifierField = "sku"

// Candidate is the view of an item used for identification: the canonical fields left after
// excluded fields are removed, with Keys listing them in mapping order (or raw order without rules).
type Candidate struct {
	Keys   []string
	Fields stockrelay.Item
}

// IdentifierStrategy resolves the identifier of an item.
type IdentifierStrategy interface {
	// Identify returns the identifier and whether the strategy decided. A decided empty
	// identifier means the item has no usable identifier and must be skipped.
	Identify(c Candidate) (string, bool)
}

// FieldIdentifier reads a named canonical field. It decides whenever the field is present.
type FieldIdentifier string

// Identify implements IdentifierStrategy.
func (f FieldIdentifier) Identify(c Candidate) (string, bool) {
	v, ok := c.Fields[string(f)]
	if !ok {
		return "", false
	}
	id, _ := scalarString(v)

	return id, true
}

// FirstKeyIdentifier uses the value of the first remaining field.
type FirstKeyIdentifier struct{}

// Identify implements IdentifierStrategy.
func (FirstKeyIdentifier) Identify(c Candidate) (string, bool) {
	if len(c.Keys) == 0 {
		return "", false
	}
	id, _ := scalarString(c.Fields[c.Keys[0]])

	return id, true
}

// ChainIdentifier returns the result of the first strategy that decides.
type ChainIdentifier []IdentifierStrategy

// Identify implements IdentifierStrategy.
func (c ChainIdentifier) Identify(cand Candidate) (string, bool) {
	for _, s := range c {
		if id, ok := s.Identify(cand); ok {
			return id, true
		}
	}

	return "", false
}

// identifierFor returns the strategy configured by the supplier mapping:
// its identifier field when set, otherwise the sku field with a first-key fallback.
func identifierFor(m stockrelay.Mapping) IdentifierStrategy {
	if m.IdentifierField != "" {
		return FieldIdentifier(m.IdentifierField)
	}

	return ChainIdentifier{FieldIdentifier(DefaultIdentifierField), FirstKeyIdentifier{}}
}

// newCandidate orders the sanitized fields by rule order, or by raw key order when the
// supplier has no rules.
func newCandidate(m stockrelay.Mapping, raw RawItem, sanitized stockrelay.Item) Candidate {
	order := raw.Keys()
	if len(m.Rules) > 0 {
		order = make([]string, 0, len(m.Rules))
		for _, rule := range m.Rules {
			order = append(order, rule.To)
		}
	}

	keys := make([]string, 0, len(sanitized))
	seen := make(map[string]struct{}, len(sanitized))
	for _, k := range order {
		if _, ok := sanitized[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	return Candidate{Keys: keys, Fields: sanitized}
}
