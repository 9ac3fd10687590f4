package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedule_RunsAfterDelay(t *testing.T) {
	var ran atomic.Bool
	Schedule(10*time.Millisecond, func() { ran.Store(true) })

	if ran.Load() {
		t.Fatal("action ran before its delay elapsed")
	}
	time.Sleep(50 * time.Millisecond)
	if !ran.Load() {
		t.Fatal("action did not run within the expected window")
	}
}

func TestSchedule_CancelPreventsAction(t *testing.T) {
	var ran atomic.Bool
	h := Schedule(10*time.Millisecond, func() { ran.Store(true) })
	h.Cancel()

	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("action ran despite being cancelled before its delay elapsed")
	}
}
