package stockrelay

// Supplier is an API caller allowed to push stock updates.
type Supplier struct {
	ID      string
	Name    string
	APIKey  string
	Active  bool
	Mapping Mapping
}

// Mapping describes how a supplier's raw payload becomes canonical items.
type Mapping struct {
	// ListRoot is an optional dot path to the item list inside the request body.
	ListRoot string `json:"list_root,omitempty"`
	// IdentifierField names the canonical field holding the item identifier.
	IdentifierField string      `json:"identifier_field,omitempty"`
	Rules           []FieldRule `json:"mapping"`
}

// FieldRule maps a source path of the raw item to a canonical field.
type FieldRule struct {
	// From is a dot path into the raw item; numeric segments index arrays.
	From string `json:"from"`
	To   string `json:"to"`
	// Value is a constant used when From is empty.
	Value any `json:"value,omitempty"`
	// ExcludeFromCache drops the field from change detection.
	ExcludeFromCache bool `json:"exclude_from_cache,omitempty"`
}

// ExcludedFields returns the canonical names ignored by change detection.
func (m Mapping) ExcludedFields() map[string]struct{} {
	out := make(map[string]struct{})
	for _, rule := range m.Rules {
		if rule.ExcludeFromCache && rule.To != "" {
			out[rule.To] = struct{}{}
		}
	}

	return out
}

// Item is a canonical supplier item: mapped field name to value.
type Item map[string]any
