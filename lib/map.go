package lib

import (
	"sync"
)

// Map is a map guarded by its own RWMutex. The zero value is ready to use.
type Map[K comparable, V any] struct {
	sync.RWMutex
	m map[K]V
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	m.RLock()
	v, found := m.m[key]
	m.RUnlock()
	return v, found
}

func (m *Map[K, V]) LoadAndDelete(key K) (V, bool) {
	m.Lock()
	v, found := m.m[key]
	delete(m.m, key)
	m.Unlock()
	return v, found
}

// LoadOrStore returns the existing value for the key if present. Otherwise
// it stores the given value and returns it with loaded false.
func (m *Map[K, V]) LoadOrStore(key K, value V) (V, bool) {
	m.Lock()
	defer m.Unlock()
	if v, found := m.m[key]; found {
		return v, true
	}
	if m.m == nil {
		m.m = make(map[K]V)
	}
	m.m[key] = value
	return value, false
}

func (m *Map[K, V]) Store(key K, value V) {
	m.Lock()
	if m.m == nil {
		m.m = make(map[K]V)
	}
	m.m[key] = value
	m.Unlock()
}

func (m *Map[K, V]) Delete(key K) {
	m.Lock()
	delete(m.m, key)
	m.Unlock()
}

func (m *Map[K, V]) Range(f func(k K, v V) bool) {
	m.RLock()
	for mk, mv := range m.m {
		if f(mk, mv) == false {
			break
		}
	}
	m.RUnlock()
}

// Values returns a snapshot of the stored values.
func (m *Map[K, V]) Values() []V {
	m.RLock()
	values := make([]V, 0, len(m.m))
	for _, v := range m.m {
		values = append(values, v)
	}
	m.RUnlock()
	return values
}

func (m *Map[K, V]) Len() int {
	m.RLock()
	l := len(m.m)
	m.RUnlock()
	return l
}
