package sim

type orderedEntry[K comparable, V any] struct {
	key     K
	value   V
	removed bool
}

// orderedMap is a map that remembers the order in which keys are first set.
// Re-setting an existing key keeps its position.
type orderedMap[K comparable, V any] struct {
	entries map[K]*orderedEntry[K, V]
	order   []*orderedEntry[K, V]
	removed int
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{
		entries: make(map[K]*orderedEntry[K, V]),
	}
}

func (m *orderedMap[K, V]) Set(k K, v V) {
	if e, ok := m.entries[k]; ok {
		e.value = v
		return
	}

	e := &orderedEntry[K, V]{key: k, value: v}
	m.entries[k] = e
	m.order = append(m.order, e)
}

func (m *orderedMap[K, V]) Get(k K) (V, bool) {
	e, ok := m.entries[k]
	if !ok {
		var zero V
		return zero, false
	}

	return e.value, true
}

func (m *orderedMap[K, V]) Has(k K) bool {
	_, ok := m.entries[k]
	return ok
}

func (m *orderedMap[K, V]) Delete(k K) bool {
	e, ok := m.entries[k]
	if !ok {
		return false
	}

	e.removed = true
	delete(m.entries, k)
	m.removed++

	if m.removed > len(m.order)/2 {
		m.compact()
	}

	return true
}

func (m *orderedMap[K, V]) compact() {
	live := make([]*orderedEntry[K, V], 0, len(m.entries))
	for _, e := range m.order {
		if !e.removed {
			live = append(live, e)
		}
	}

	m.order = live
	m.removed = 0
}

func (m *orderedMap[K, V]) Len() int {
	return len(m.entries)
}

func (m *orderedMap[K, V]) Values() []V {
	values := make([]V, 0, len(m.entries))
	for _, e := range m.order {
		if !e.removed {
			values = append(values, e.value)
		}
	}

	return values
}

func (m *orderedMap[K, V]) Clear() {
	clear(m.entries)
	m.order = m.order[:0]
	m.removed = 0
}
