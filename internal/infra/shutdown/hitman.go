package shutdown

import (
	"context"
	"sync"
	"time"
)

// DefaultTick is the polling interval used by Await when none is given.
const DefaultTick = 10 * time.Millisecond

// Hitman runs an action at most once, either right away or after a delay.
//
// The gateway uses it to cancel the server context: Stop waits a bounded
// time for connections to finish, then schedules the fire after the
// shutdown grace period.
type Hitman struct {
	mu     sync.Mutex
	action func()
	fired  bool
	timer  *time.Timer
	done   chan struct{}
}

// NewHitman creates a Hitman for action.
func NewHitman(action func()) *Hitman {
	return &Hitman{
		action: action,
		done:   make(chan struct{}),
	}
}

// Fire runs the action now unless it already ran. It reports whether this
// call ran it.
func (h *Hitman) Fire() bool {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		return false
	}
	h.fired = true
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()

	defer close(h.done)
	h.action()
	return true
}

// After schedules Fire to run after d. A later call replaces the schedule.
func (h *Hitman) After(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(d, func() { h.Fire() })
}

// Done is closed once the action has finished.
func (h *Hitman) Done() <-chan struct{} {
	return h.done
}

// Await polls cond every tick until it holds, limit elapses or ctx ends.
// It reports whether cond held. Await never fires the action.
func Await(ctx context.Context, limit, tick time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}
	if tick <= 0 {
		tick = DefaultTick
	}

	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cond() {
				return true
			}
		case <-deadline.C:
			return cond()
		case <-ctx.Done():
			return cond()
		}
	}
}
