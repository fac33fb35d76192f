package gateway

import (
	"net/netip"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/yndnr/kkmgate/pkg/cmap"
)

// pruneEvery is the number of Allow calls between sweeps of idle limiters.
const pruneEvery = 1024

// ipLimiter keeps one token bucket per remote address.
type ipLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cmap.Map[*rate.Limiter]
	calls    atomic.Uint64
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = max(1, int(perSecond))
	}
	return &ipLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: cmap.New[*rate.Limiter](),
	}
}

// Allow reports whether a connection from addr may proceed.
func (l *ipLimiter) Allow(addr netip.Addr) bool {
	if l.calls.Add(1)%pruneEvery == 0 {
		l.prune()
	}
	lim, _ := l.limiters.GetOrCreate(addr.String(), func() *rate.Limiter {
		return rate.NewLimiter(l.limit, l.burst)
	})
	return lim.Allow()
}

// prune drops limiters whose bucket has refilled; they hold no state worth
// keeping.
func (l *ipLimiter) prune() int {
	return l.limiters.DeleteFunc(func(_ string, lim *rate.Limiter) bool {
		return lim.Tokens() >= float64(l.burst)
	})
}

// Len returns the number of tracked addresses.
func (l *ipLimiter) Len() int {
	return l.limiters.Len()
}
