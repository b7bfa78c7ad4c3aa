// Package clock provides scheduling over wall-clock time.
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MinInterval is the shortest period Every schedules; shorter or
// non-positive periods are raised to it.
const MinInterval = time.Millisecond

// Token identifies a scheduled callback. The zero Token is never issued.
type Token uint64

// Clock schedules callbacks. Cancel prevents every invocation of the token's
// callback that has not already begun; callers that need a strict cutoff
// must also guard the callback body (see session.Controller).
type Clock interface {
	Now() time.Time
	After(d time.Duration, fn func()) Token
	Every(d time.Duration, fn func()) Token
	Cancel(tok Token)
	Pending() int
}

// Wall is a Clock backed by goroutines and real time.
type Wall struct {
	mu     sync.Mutex
	next   Token
	timers map[Token]*wallTimer
}

type wallTimer struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewWall creates a wall clock.
func NewWall() *Wall {
	return &Wall{timers: make(map[Token]*wallTimer)}
}

// Now returns the current wall time with the monotonic reading stripped.
func (w *Wall) Now() time.Time {
	return toWallTime(time.Now())
}

// After calls fn once after d.
func (w *Wall) After(d time.Duration, fn func()) Token {
	ctx, t, tok := w.register()

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.forget(tok)
			if !t.cancelled.Load() {
				fn()
			}
		}
	}()

	return tok
}

// Every calls fn every d until cancelled. d is raised to MinInterval.
func (w *Wall) Every(d time.Duration, fn func()) Token {
	if d < MinInterval {
		d = MinInterval
	}
	ctx, t, tok := w.register()

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if t.cancelled.Load() {
					return
				}
				fn()
			}
		}
	}()

	return tok
}

// Cancel stops the callback for tok. Unknown or zero tokens are ignored.
func (w *Wall) Cancel(tok Token) {
	w.mu.Lock()
	t, ok := w.timers[tok]
	delete(w.timers, tok)
	w.mu.Unlock()

	if !ok {
		return
	}
	t.cancelled.Store(true)
	t.cancel()
}

// Pending returns the number of scheduled callbacks.
func (w *Wall) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

func (w *Wall) register() (context.Context, *wallTimer, Token) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &wallTimer{cancel: cancel}

	w.mu.Lock()
	w.next++
	tok := w.next
	w.timers[tok] = t
	w.mu.Unlock()

	return ctx, t, tok
}

func (w *Wall) forget(tok Token) {
	w.mu.Lock()
	t, ok := w.timers[tok]
	delete(w.timers, tok)
	w.mu.Unlock()

	if ok {
		t.cancel()
	}
}

// toWallTime returns the time with monotonic clock stripped.
// Elapsed time then includes periods where the host was suspended.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
