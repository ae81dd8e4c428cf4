package utils

import "encoding/json"

// An OrderedMap keeps the insertion order of its entries, unlike the
// built-in Go map. It backs every place in the toolchain where iteration
// order must be reproducible across runs (e.g. class/subroutine
// declaration order, since that order leaks into generated label and
// symbol-table numbering).
type OrderedMap[K comparable, V any] struct {
	index   map[K]int
	entries []MapEntry[K, V]
}

// A single key/value pair, in the order it was inserted into an OrderedMap.
type MapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// Builds a new OrderedMap from a slice of entries, preserving the slice order.
// A later entry with a duplicate key overwrites the earlier one in place.
func NewOrderedMapFromList[K comparable, V any](entries []MapEntry[K, V]) OrderedMap[K, V] {
	om := OrderedMap[K, V]{}
	for _, entry := range entries {
		om.Set(entry.Key, entry.Value)
	}
	return om
}

// Inserts or updates the value for 'key'. Existing keys keep their original
// position, so re-setting a key does not move it to the back.
func (om *OrderedMap[K, V]) Set(key K, value V) {
	if om.index == nil {
		om.index = map[K]int{}
	}

	if i, found := om.index[key]; found {
		om.entries[i].Value = value
		return
	}

	om.index[key] = len(om.entries)
	om.entries = append(om.entries, MapEntry[K, V]{Key: key, Value: value})
}

// Looks up 'key', returning the zero value and false if absent.
func (om *OrderedMap[K, V]) Get(key K) (V, bool) {
	if i, found := om.index[key]; found {
		return om.entries[i].Value, true
	}

	var zero V
	return zero, false
}

// Returns the number of entries currently stored.
func (om *OrderedMap[K, V]) Size() int {
	return len(om.entries)
}

// Returns the stored values, in insertion order.
func (om *OrderedMap[K, V]) Entries() []V {
	values := make([]V, 0, len(om.entries))
	for _, entry := range om.entries {
		values = append(values, entry.Value)
	}
	return values
}

// Returns the stored keys, in insertion order.
func (om *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(om.entries))
	for _, entry := range om.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// Serializes as a JSON array of its entries (not an object), since the
// entry order must survive the round trip and Go maps can't be trusted to
// keep it.
func (om OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	if om.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(om.entries)
}

func (om *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	var entries []MapEntry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	om.index = nil
	om.entries = nil
	for _, entry := range entries {
		om.Set(entry.Key, entry.Value)
	}
	return nil
}
