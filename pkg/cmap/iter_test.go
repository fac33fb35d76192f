package cmap

import (
	"fmt"
	"testing"
)

func TestRange(t *testing.T) {
	m := New[int]()
	for i := 0; i < 20; i++ {
		m.Set(fmt.Sprintf("k%02d", i), i)
	}

	seen := 0
	m.Range(func(string, int) bool {
		seen++
		return true
	})
	if seen != 20 {
		t.Errorf("Range visited %d, want 20", seen)
	}

	seen = 0
	m.Range(func(string, int) bool {
		seen++
		return seen < 5
	})
	if seen != 5 {
		t.Errorf("Range with early stop visited %d, want 5", seen)
	}
}

func TestKeysSorted(t *testing.T) {
	m := New[bool]()
	for _, k := range []string{"c", "a", "b"} {
		m.Set(k, true)
	}
	keys := m.Keys()
	if fmt.Sprint(keys) != "[a b c]" {
		t.Errorf("Keys() = %v, want [a b c]", keys)
	}
}

func TestSnapshot(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	snap := m.Snapshot()
	m.Set("a", 2)
	if snap["a"] != 1 {
		t.Error("Snapshot() aliases the live map")
	}
}

func TestDeleteFunc(t *testing.T) {
	m := New[int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprint(i), i)
	}
	n := m.DeleteFunc(func(_ string, v int) bool { return v%2 == 0 })
	if n != 5 || m.Len() != 5 {
		t.Errorf("DeleteFunc() removed %d, Len() = %d", n, m.Len())
	}
}
