package lib

import (
	"sort"
	"testing"
)

func TestMap(t *testing.T) {
	var m Map[string, int]

	if _, found := m.Load("a"); found {
		t.Fatal("zero map must be empty")
	}

	m.Store("a", 1)
	m.Store("b", 2)
	m.Store("a", 3)
	if m.Len() != 2 {
		t.Fatal("expected 2 items, got", m.Len())
	}
	if v, _ := m.Load("a"); v != 3 {
		t.Fatal("store must overwrite, got", v)
	}

	v, found := m.LoadAndDelete("a")
	if found == false || v != 3 {
		t.Fatal("unexpected LoadAndDelete result", v, found)
	}
	if _, found := m.Load("a"); found {
		t.Fatal("LoadAndDelete must remove the key")
	}

	m.Delete("missing")
	m.Store("c", 4)
	values := m.Values()
	sort.Ints(values)
	if len(values) != 2 || values[0] != 2 || values[1] != 4 {
		t.Fatal("unexpected values", values)
	}

	n := 0
	m.Range(func(k string, v int) bool {
		n++
		return false
	})
	if n != 1 {
		t.Fatal("range must stop when f returns false")
	}
}

func TestMapLoadOrStore(t *testing.T) {
	var m Map[string, int]

	if v, loaded := m.LoadOrStore("a", 1); loaded || v != 1 {
		t.Fatal("unexpected LoadOrStore result on empty map", v, loaded)
	}
	if v, loaded := m.LoadOrStore("a", 2); loaded == false || v != 1 {
		t.Fatal("LoadOrStore must keep the existing value", v, loaded)
	}
}
