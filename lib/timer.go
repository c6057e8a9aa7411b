package lib

import (
	"sync"
	"time"
)

var (
	timers = &sync.Pool{
		New: func() interface{} {
			t := time.NewTimer(time.Hour)
			t.Stop()
			return t
		},
	}
)

// TakeTimer returns a pooled timer armed to fire after d.
func TakeTimer(d time.Duration) *time.Timer {
	t := timers.Get().(*time.Timer)
	t.Reset(d)
	return t
}

// ReleaseTimer stops the timer and puts it back to the pool.
func ReleaseTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}
