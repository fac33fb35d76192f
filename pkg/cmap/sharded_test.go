package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{32, 32},
		{1, 1},
		{0, DefaultShardCount},
		{-4, DefaultShardCount},
		{12, DefaultShardCount},
	}
	for _, tt := range tests {
		if got := NewWithShards[int](tt.in).ShardCount(); got != tt.want {
			t.Errorf("NewWithShards(%d).ShardCount() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMap_Basic(t *testing.T) {
	m := New[int]()

	if _, ok := m.Get("a"); ok {
		t.Fatal("Get() on empty map hit")
	}
	m.Set("a", 1)
	m.Set("a", 2)
	if v, ok := m.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	if !m.Has("a") || m.Has("b") {
		t.Error("Has() wrong")
	}
	if m.SetIfAbsent("a", 3) {
		t.Error("SetIfAbsent() replaced an existing key")
	}
	if !m.SetIfAbsent("b", 3) {
		t.Error("SetIfAbsent() refused a new key")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if v, ok := m.Pop("b"); !ok || v != 3 {
		t.Errorf("Pop(b) = %d, %v", v, ok)
	}
	if !m.Delete("a") || m.Delete("a") {
		t.Error("Delete() result wrong")
	}
	m.Set("x", 1)
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len() after Clear = %d", m.Len())
	}
}

func TestMap_GetOrCreate(t *testing.T) {
	m := New[*int]()
	calls := 0
	create := func() *int { calls++; v := 7; return &v }

	a, existed := m.GetOrCreate("k", create)
	if existed {
		t.Error("first GetOrCreate() reported existing")
	}
	b, existed := m.GetOrCreate("k", create)
	if !existed || a != b {
		t.Error("second GetOrCreate() did not return the stored value")
	}
	if calls != 1 {
		t.Errorf("create called %d times", calls)
	}
}

func TestMap_Compute(t *testing.T) {
	m := New[int]()
	inc := func(old int, _ bool) (int, bool) { return old + 1, true }

	m.Compute("n", inc)
	m.Compute("n", inc)
	if v, _ := m.Get("n"); v != 2 {
		t.Errorf("n = %d, want 2", v)
	}

	m.Compute("n", func(int, bool) (int, bool) { return 0, false })
	if m.Has("n") {
		t.Error("Compute() with keep=false did not delete")
	}
}

func TestMap_Concurrent(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%50)
				m.Compute(key, func(old int, _ bool) (int, bool) { return old + 1, true })
				m.Get(key)
			}
		}(g)
	}
	wg.Wait()

	total := 0
	m.Range(func(_ string, v int) bool {
		total += v
		return true
	})
	if total != 8*200 {
		t.Errorf("total = %d, want %d", total, 8*200)
	}
}
