package respcache

import (
	"sync"
	"testing"
	"time"

	"github.com/yndnr/kkmgate/internal/core/domain"
)

func TestKeys(t *testing.T) {
	if got := IdempotencyKey("10.0.0.1", "abc"); got != "kkm::::10.0.0.1::::abc" {
		t.Errorf("IdempotencyKey() = %q", got)
	}
	if got := StaticKey("/index.html"); got != "static::::/index.html" {
		t.Errorf("StaticKey() = %q", got)
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := New()
	payload := domain.NewSolid("done", "")

	c.Store("k", time.Now().Add(60*time.Second), domain.StatusOK, payload, 42)

	e, ok := c.Load("k")
	if !ok {
		t.Fatal("Load() miss after Store()")
	}
	if e.Status != domain.StatusOK {
		t.Errorf("Status = %v, want OK", e.Status)
	}
	if e.Payload != payload {
		t.Error("Load() returned a different payload instance")
	}
	if e.Fingerprint != 42 {
		t.Errorf("Fingerprint = %d", e.Fingerprint)
	}
	if e.CachedAt.IsZero() {
		t.Error("CachedAt not stamped")
	}

	c.Store("k", time.Now().Add(time.Minute), domain.StatusFound, nil, 0)
	if e, _ := c.Load("k"); e.Payload != nil {
		t.Error("Store() did not replace the entry")
	}
}

func TestCache_MaintainThreshold(t *testing.T) {
	now := time.Now()
	c := New(WithClock(func() time.Time { return now }))

	c.Store("old", now.Add(-time.Second), domain.StatusOK, nil, 0)
	c.Store("fresh", now.Add(time.Minute), domain.StatusOK, nil, 0)

	for i := 0; i < DefaultCleanupThreshold-1; i++ {
		if n := c.Maintain(); n != 0 {
			t.Fatalf("Maintain() swept on call %d", i+1)
		}
	}
	// Expired but unswept entries are still served.
	if _, ok := c.Load("old"); !ok {
		t.Fatal("expired entry removed before the sweep")
	}

	if n := c.Maintain(); n != 1 {
		t.Errorf("Maintain() at threshold removed %d, want 1", n)
	}
	if _, ok := c.Load("old"); ok {
		t.Error("expired entry still present after sweep")
	}
	if _, ok := c.Load("fresh"); !ok {
		t.Error("fresh entry removed")
	}

	// The counter restarts after a sweep.
	c.Store("old2", now.Add(-time.Second), domain.StatusOK, nil, 0)
	if n := c.Maintain(); n != 0 {
		t.Errorf("Maintain() right after a sweep removed %d", n)
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(WithThreshold(1))
	now := time.Now()
	c.Store("a", now.Add(-time.Minute), domain.StatusOK, nil, 0)
	c.Store("b", now.Add(time.Minute), domain.StatusOK, nil, 0)

	if n := c.Sweep(now); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	c.Delete("b")
	if c.Len() != 0 {
		t.Errorf("Len() after Delete = %d", c.Len())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New(WithThreshold(10))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.Store("k", time.Now(), domain.StatusOK, nil, 0)
				c.Load("k")
				c.Maintain()
			}
		}()
	}
	wg.Wait()
}
