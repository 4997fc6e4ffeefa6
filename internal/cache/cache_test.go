package cache

import (
	"strings"
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("short", "x")
	c.SetWithTTL("long", "y", time.Hour)

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Fatal("expired entry returned")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatal("long-lived entry missing")
	}

	now = now.Add(2 * time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("cleaned %d", n)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 0 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestDeleteFunc(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("2024-03", 1)
	c.Set("2024-04", 2)
	c.Set("2023-03", 3)

	n := c.DeleteFunc(func(key string, _ int) bool { return strings.HasPrefix(key, "2024-") })
	if n != 2 || c.Size() != 1 {
		t.Fatalf("removed %d, size %d", n, c.Size())
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("k", 1)

	m := NewManager(nil)
	m.Register("test", c)
	m.StartCleanup(time.Hour)

	now = now.Add(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d", n)
	}
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	NewManager(nil).Stop()
}
