package gateway

import (
	"net/netip"
	"testing"

	"golang.org/x/time/rate"
)

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(1, 2)
	a := netip.MustParseAddr("192.0.2.1")
	b := netip.MustParseAddr("192.0.2.2")

	if !l.Allow(a) || !l.Allow(a) {
		t.Fatal("burst of 2 not allowed")
	}
	if l.Allow(a) {
		t.Error("third connection within a second allowed")
	}
	if !l.Allow(b) {
		t.Error("other address limited")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d", l.Len())
	}
}

func TestIPLimiter_Prune(t *testing.T) {
	l := newIPLimiter(1000, 5)
	l.Allow(netip.MustParseAddr("192.0.2.1"))
	// An untouched limiter is full and prunable.
	l.limiters.Set("192.0.2.9", rate.NewLimiter(l.limit, l.burst))
	if n := l.prune(); n < 1 {
		t.Errorf("prune() = %d, want at least 1", n)
	}
	if l.limiters.Has("192.0.2.9") {
		t.Error("idle limiter kept")
	}
}
