package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven Clock for tests.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	next   Token
	seq    uint64
	timers map[Token]*fakeTimer
}

type fakeTimer struct {
	due    time.Time
	period time.Duration
	seq    uint64 // scheduling order, breaks ties between equal due times
	fn     func()
}

// NewFake creates a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{
		now:    start,
		timers: make(map[Token]*fakeTimer),
	}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After schedules fn once at Now()+d.
func (f *Fake) After(d time.Duration, fn func()) Token {
	return f.schedule(d, 0, fn)
}

// Every schedules fn at every multiple of d from Now(). d is raised to MinInterval.
func (f *Fake) Every(d time.Duration, fn func()) Token {
	if d < MinInterval {
		d = MinInterval
	}
	return f.schedule(d, d, fn)
}

// Cancel removes tok. Unknown or zero tokens are ignored.
func (f *Fake) Cancel(tok Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.timers, tok)
}

// Pending returns the number of scheduled callbacks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Advance moves time forward by d, firing due callbacks in time order.
// Callbacks run without the clock's lock held and may schedule or cancel.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		tok, t := f.nextDueLocked(target)
		if t == nil {
			if f.now.Before(target) {
				f.now = target
			}
			f.mu.Unlock()
			return
		}
		if t.due.After(f.now) {
			f.now = t.due
		}
		if t.period > 0 {
			t.due = t.due.Add(t.period)
		} else {
			delete(f.timers, tok)
		}
		fn := t.fn
		f.mu.Unlock()

		fn()
	}
}

// Stall moves time forward by d without firing anything, as a throttled
// host would. Overdue periodic callbacks fire once on the next Advance.
func (f *Fake) Stall(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
	for _, t := range f.timers {
		if t.due.Before(f.now) {
			t.due = f.now
		}
	}
}

func (f *Fake) schedule(d, period time.Duration, fn func()) Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	f.seq++
	f.timers[f.next] = &fakeTimer{
		due:    f.now.Add(d),
		period: period,
		seq:    f.seq,
		fn:     fn,
	}
	return f.next
}

func (f *Fake) nextDueLocked(target time.Time) (Token, *fakeTimer) {
	var (
		bestTok Token
		best    *fakeTimer
	)
	for tok, t := range f.timers {
		if t.due.After(target) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			bestTok, best = tok, t
		}
	}
	return bestTok, best
}
