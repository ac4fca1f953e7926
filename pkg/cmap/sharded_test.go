package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},  // invalid → default
		{-1, DefaultShardCount}, // invalid → default
		{3, DefaultShardCount},  // not power of 2 → default
		{1, 1},
		{4, 4},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int]()

	m.Set("doc-a", 100)
	m.Set("doc-b", 200)

	if val, ok := m.Get("doc-a"); !ok || val != 100 {
		t.Errorf("Get(doc-a) = (%d, %v), want (100, true)", val, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should not exist")
	}

	m.Delete("doc-a")
	if m.Has("doc-a") {
		t.Error("doc-a should not exist after deletion")
	}

	// Deleting an absent key must be a no-op, not a panic.
	m.Delete("missing")

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[string, int]()

	v, existed := m.GetOrSet("k", 1)
	if existed || v != 1 {
		t.Fatalf("GetOrSet new = (%d, %v), want (1, false)", v, existed)
	}

	v, existed = m.GetOrSet("k", 2)
	if !existed || v != 1 {
		t.Fatalf("GetOrSet existing = (%d, %v), want (1, true)", v, existed)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 9)

	if v, ok := m.Pop("k"); !ok || v != 9 {
		t.Fatalf("Pop = (%d, %v), want (9, true)", v, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Fatal("second Pop should report missing key")
	}
}

func TestUpdate(t *testing.T) {
	m := New[string, int]()

	got := m.Update("counter", func(v int, exists bool) int {
		if exists {
			t.Error("counter should not exist yet")
		}
		return 1
	})
	if got != 1 {
		t.Fatalf("Update = %d, want 1", got)
	}

	got = m.Update("counter", func(v int, exists bool) int { return v + 1 })
	if got != 2 {
		t.Fatalf("Update = %d, want 2", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i)
				m.Set(key, i)
				if v, ok := m.Get(key); !ok || v != i {
					t.Errorf("Get(%s) = (%d, %v)", key, v, ok)
				}
				if i%3 == 0 {
					m.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestClear(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}
	m.Clear()
	if m.Count() != 0 {
		t.Fatalf("Count after Clear = %d, want 0", m.Count())
	}
}
