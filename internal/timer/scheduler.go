// Package timer implements the scheduled-coroutine primitive of spec.md
// §4.3: a one-shot deferred action with cancellation, grounded on
// original_source/netbound/__init__.py's `schedule` (a thin wrapper over
// asyncio's call_later/TimerHandle). Go's time.AfterFunc already returns a
// cancellable handle with exactly this shape, so it is used directly
// rather than reimplemented.
package timer

import "time"

// Handle cancels a scheduled action. Cancel after the action has already
// started has no effect, matching spec.md §4.3.
type Handle struct {
	t *time.Timer
}

// Cancel prevents the action from running if it has not started yet.
func (h *Handle) Cancel() {
	h.t.Stop()
}

// Schedule runs action on its own goroutine after delay, unless cancelled
// first via the returned Handle. There is no ordering guarantee between
// two actions scheduled for the same deadline (spec.md §4.3).
func Schedule(delay time.Duration, action func()) *Handle {
	return &Handle{t: time.AfterFunc(delay, action)}
}
