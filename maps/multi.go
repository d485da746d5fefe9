package maps

// Multi is a multimap keeping keys in insertion order and values in put order per key
type Multi[K comparable, V any] struct {
	keys   []K
	values map[K][]V
}

// NewMulti returns an empty multimap
func NewMulti[K comparable, V any]() *Multi[K, V] {
	return &Multi[K, V]{values: make(map[K][]V)}
}

// Put appends value to the values of key
func (m *Multi[K, V]) Put(key K, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = append(m.values[key], value)
}

// Get returns the values of key in put order
func (m *Multi[K, V]) Get(key K) []V {
	return m.values[key]
}

// Keys returns the keys in insertion order
func (m *Multi[K, V]) Keys() []K {
	return append([]K(nil), m.keys...)
}

// Len returns the number of distinct keys
func (m *Multi[K, V]) Len() int {
	return len(m.keys)
}

// Each calls fn for every key in insertion order
func (m *Multi[K, V]) Each(fn func(key K, values []V)) {
	for _, key := range m.keys {
		fn(key, m.values[key])
	}
}
