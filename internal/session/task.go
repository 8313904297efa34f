package session

import (
	"context"
	"math/rand"
	"time"
)

// After runs fn after d, unless ctx is cancelled first.
//
// The context is re-checked when the timer fires, so a cancellation that
// races the timer still wins: fn either observes a live context at entry
// or never runs. Callers that touch session state inside fn should still
// re-validate it, since a detach can land between the check and the work.
func After(ctx context.Context, d time.Duration, fn func()) {
	fired := make(chan struct{})
	t := time.AfterFunc(d, func() {
		defer close(fired)
		if ctx.Err() != nil {
			return
		}
		fn()
	})
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				t.Stop()
			case <-fired:
			}
		}()
	}
}

// Jitter returns a uniformly random duration in [min, max].
// When max <= min it returns min.
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}
