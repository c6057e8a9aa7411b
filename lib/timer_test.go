package lib

import (
	"testing"
	"time"
)

func TestTimerPool(t *testing.T) {
	timer := TakeTimer(time.Millisecond)
	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("pooled timer did not fire")
	}
	ReleaseTimer(timer)

	// released timer must be reusable without a stale tick
	timer = TakeTimer(time.Hour)
	select {
	case <-timer.C:
		t.Fatal("stale tick from the previous use")
	case <-time.After(10 * time.Millisecond):
	}
	ReleaseTimer(timer)
}
