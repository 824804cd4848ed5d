// Package bag implements the open-ended attribute container stored in the
// "extra" column of CRM entities. Values are restricted to the JSON value
// space (string, number, bool, null, nested object, array) so arbitrary Go
// types never leak into storage.
package bag

import (
	"encoding/json"
	"fmt"
)

// Bag holds attributes outside the fixed schema of an entity.
type Bag map[string]any

// New returns an empty bag.
func New() Bag {
	return Bag{}
}

// FromJSON decodes a bag from its stored JSON form. A nil or empty payload
// yields an empty bag.
func FromJSON(data []byte) (Bag, error) {
	if len(data) == 0 {
		return New(), nil
	}
	var b Bag
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode attribute bag: %w", err)
	}
	if b == nil {
		b = New()
	}
	return b, nil
}

// JSON encodes the bag for storage. An empty bag encodes as {}.
func (b Bag) JSON() []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	data, err := json.Marshal(b)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Set stores a value after checking it stays within the JSON value space.
func (b Bag) Set(key string, value any) error {
	if err := checkValue(value); err != nil {
		return fmt.Errorf("attribute %q: %w", key, err)
	}
	b[key] = value
	return nil
}

// Merge copies entries from other into b for keys b does not already have.
// Existing values are never overwritten.
func (b Bag) Merge(other Bag) {
	for k, v := range other {
		if _, exists := b[k]; !exists {
			b[k] = v
		}
	}
}

func checkValue(v any) error {
	switch val := v.(type) {
	case nil, string, bool, float64, int, int64:
		return nil
	case map[string]any:
		for k, nested := range val {
			if err := checkValue(nested); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	case []any:
		for i, nested := range val {
			if err := checkValue(nested); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}
