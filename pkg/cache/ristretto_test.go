package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewRistrettoCache: %v", err)
	}
	rc := c.(*RistrettoCache)
	t.Cleanup(rc.Close)
	return rc
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)

	if !c.Set("market:1", "snapshot", time.Minute) {
		t.Fatal("Set returned false")
	}
	c.Wait()

	got, found := c.Get("market:1")
	if !found {
		t.Fatal("Get: not found after Set")
	}
	if got != "snapshot" {
		t.Errorf("Get = %v, want snapshot", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c := newTestCache(t)

	if _, found := c.Get("absent"); found {
		t.Error("Get reported a hit for an absent key")
	}
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)

	c.Set("market:1", "snapshot", time.Minute)
	c.Wait()
	c.Delete("market:1")

	if _, found := c.Get("market:1"); found {
		t.Error("Get reported a hit after Delete")
	}
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Wait()
	c.Clear()

	if _, found := c.Get("a"); found {
		t.Error("key survived Clear")
	}
}
