package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string](time.Minute)
	defer c.Stop()

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Fatalf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) returned a value")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Stop()

	c.SetWithTTL("n", 42, 10*time.Millisecond)
	if _, ok := c.Get("n"); !ok {
		t.Fatal("value expired immediately")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("n"); ok {
		t.Fatal("value still readable after TTL")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted key still present")
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}

	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("Size() after Clear = %d, want 0", c.Size())
	}
}
