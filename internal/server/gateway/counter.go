package gateway

import (
	"sync"
	"sync/atomic"
)

// Counter tracks in-flight connections. It is owned by a Server and used
// both for admission and for draining on shutdown.
type Counter struct {
	n      atomic.Int64
	onMove func(delta int)
}

// Acquire increments the counter and returns the permit that undoes it.
func (c *Counter) Acquire() *Permit {
	c.n.Add(1)
	if c.onMove != nil {
		c.onMove(1)
	}
	return &Permit{c: c}
}

// Value returns the current count.
func (c *Counter) Value() int {
	return int(c.n.Load())
}

func (c *Counter) release() {
	if v := c.n.Add(-1); v < 0 {
		panic("gateway: in-flight counter went negative")
	}
	if c.onMove != nil {
		c.onMove(-1)
	}
}

// Permit is one unit of the Counter. Release may be called any number of
// times; only the first call decrements.
type Permit struct {
	c    *Counter
	once sync.Once
}

// Release returns the permit.
func (p *Permit) Release() {
	p.once.Do(p.c.release)
}
