package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("2025", "batch")

	if v, ok := c.Get("2025"); !ok || v != "batch" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("2025"); ok {
		t.Fatal("entry should have expired")
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a was used recently and should stay")
	}
	if c.Stats().Evictions != 1 {
		t.Fatalf("evictions = %d", c.Stats().Evictions)
	}
}

func TestLRUCache_CleanExpiredAndClear(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("old", "x")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("new", "y")
	clock.t = clock.t.Add(45 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow removed %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("size after Clear = %d", c.Size())
	}
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.StartCleanup(time.Hour)
	m.Stop()
}
