package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	mu      sync.Mutex
	batches []map[string]int
}

func (c *captured) collect(batch map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
}

func (c *captured) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func TestCoalescer_ManyPutsOneFlushLatestValue(t *testing.T) {
	var got captured
	c := NewCoalescer[string, int](20*time.Millisecond, got.collect)

	for i := 1; i <= 10; i++ {
		c.Put("conn-a", i)
	}

	assert.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	require.Len(t, got.batches, 1)
	assert.Equal(t, 10, got.batches[0]["conn-a"])
}

func TestCoalescer_BatchCarriesAllKeys(t *testing.T) {
	var got captured
	c := NewCoalescer[string, int](20*time.Millisecond, got.collect)

	c.Put("conn-a", 1)
	c.Put("conn-b", 2)
	c.Put("conn-c", 3)

	assert.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, map[string]int{"conn-a": 1, "conn-b": 2, "conn-c": 3}, got.batches[0])
}

func TestCoalescer_NoFlushWhenIdle(t *testing.T) {
	var got captured
	c := NewCoalescer[string, int](10*time.Millisecond, got.collect)

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, got.count())
	assert.Zero(t, c.PendingCount())
}

func TestCoalescer_FlushDeliversImmediately(t *testing.T) {
	var got captured
	c := NewCoalescer[string, int](time.Hour, got.collect)

	c.Put("conn-a", 7)
	c.Flush()

	require.Equal(t, 1, got.count())
	assert.Equal(t, 7, got.batches[0]["conn-a"])
	assert.Zero(t, c.PendingCount())
}

func TestCoalescer_StopRejectsFurtherPuts(t *testing.T) {
	var got captured
	c := NewCoalescer[string, int](time.Hour, got.collect)

	c.Put("conn-a", 1)
	c.Stop()
	c.Put("conn-b", 2)

	require.Equal(t, 1, got.count())
	assert.NotContains(t, got.batches[0], "conn-b")
	assert.Zero(t, c.PendingCount())
}
