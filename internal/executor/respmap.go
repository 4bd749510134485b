package executor

import "github.com/dolmen-go/jsonmap"

// Response objects are jsonmap.Ordered values so that JSON encoding emits
// keys in selection order, which is the authoritative key order of a result
// object.

func newResponseMap(capacity int) *jsonmap.Ordered {
	return &jsonmap.Ordered{
		Data:  make(map[string]any, capacity),
		Order: make([]string, 0, capacity),
	}
}

func responseMapSet(m *jsonmap.Ordered, key string, value any) {
	if _, ok := m.Data[key]; !ok {
		m.Order = append(m.Order, key)
	}
	m.Data[key] = value
}
