package session

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/stillpoint/internal/app/clock"
	"github.com/osa030/stillpoint/internal/app/completion"
	"github.com/osa030/stillpoint/internal/app/notification"
	"github.com/osa030/stillpoint/internal/domain/phase"
	"github.com/osa030/stillpoint/internal/domain/practice"
)

// Errors
var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotSupported      = errors.New("not supported by this timeline")
)

// DefaultResolution is the tick interval used when Options.Resolution is unset.
const DefaultResolution = 100 * time.Millisecond

// Options holds controller configuration.
type Options struct {
	Resolution  time.Duration       // Tick interval
	Clock       clock.Clock         // Defaults to a wall clock
	Sink        completion.Sink     // Called once on natural completion; may be nil
	Reporter    completion.Reporter // Receives sink failures; defaults to the logger
	SinkTimeout time.Duration       // Bound for one sink call
}

// Controller runs one session of a timeline. It owns the session state and
// the single tick source driving it.
//
// Listeners registered with Subscribe are called synchronously, in order,
// while the controller's lock is held. A listener must not call Controller
// methods; it may call the unsubscribe func it was given.
type Controller struct {
	mu sync.Mutex

	id       string
	timeline *phase.Timeline
	opts     Options

	clock      clock.Clock
	dispatcher *completion.Dispatcher
	notifier   *notification.Manager[Snapshot]

	// Session state
	status           Status
	phaseIndex       int
	phaseElapsed     time.Duration
	instructionIndex int
	lastTick         time.Time

	// Tick source. tickGen invalidates callbacks of replaced or cancelled tokens.
	tickToken clock.Token
	tickGen   uint64

	completed bool
	done      chan struct{}
}

// New creates an idle controller for tl. tl must be non-nil.
func New(tl *phase.Timeline, opts Options) *Controller {
	if opts.Resolution <= 0 {
		opts.Resolution = DefaultResolution
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewWall()
	}

	first := tl.NextActive(0)
	if first < 0 {
		first = 0
	}

	return &Controller{
		id:         uuid.New().String(),
		timeline:   tl,
		opts:       opts,
		clock:      opts.Clock,
		dispatcher: completion.NewDispatcher(opts.Sink, opts.Reporter, opts.SinkTimeout),
		notifier:   notification.NewManager[Snapshot](),
		status:     StatusIdle,
		phaseIndex: first,
		done:       make(chan struct{}),
	}
}

// ID returns the session ID.
func (c *Controller) ID() string {
	return c.id
}

// Timeline returns the timeline this session runs.
func (c *Controller) Timeline() *phase.Timeline {
	return c.timeline
}

// Done returns a channel closed when the session reaches a terminal status.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Subscribe registers a listener for snapshots and returns its unsubscribe func.
func (c *Controller) Subscribe(listener func(Snapshot)) func() {
	id := c.notifier.Subscribe(listener)
	var once sync.Once
	return func() {
		once.Do(func() { c.notifier.Unsubscribe(id) })
	}
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(EventNone)
}

// Start starts an idle session. Calling it on a running or paused session
// does nothing.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusRunning, StatusPaused:
		return nil
	case StatusComplete, StatusCancelled:
		return errors.Wrapf(ErrInvalidTransition, "start from %s", c.status)
	}

	c.phaseElapsed = 0
	c.instructionIndex = 0
	c.status = StatusRunning
	c.lastTick = c.clock.Now()
	c.startTickerLocked()

	zlog.Debug().Msgf("session: started: session=%s timeline=%s total=%v resolution=%v",
		c.id, c.timeline.ID(), c.timeline.TotalDuration(), c.opts.Resolution)

	c.emitLocked(EventStarted)
	return nil
}

// Pause stops the tick source, keeping elapsed time.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.timeline.Pausable() {
		return errors.Wrapf(ErrNotSupported, "pause timeline %s", c.timeline.ID())
	}
	if c.status != StatusRunning {
		return errors.Wrapf(ErrInvalidTransition, "pause from %s", c.status)
	}

	// Account for the time since the last tick before stopping
	c.tickLocked()
	if c.status != StatusRunning {
		return errors.Wrapf(ErrInvalidTransition, "pause from %s", c.status)
	}

	c.stopTickerLocked()
	c.status = StatusPaused

	zlog.Debug().Msgf("session: paused: session=%s phase=%d elapsed=%v", c.id, c.phaseIndex, c.phaseElapsed)

	c.emitLocked(EventPaused)
	return nil
}

// Resume restarts the tick source of a paused session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.timeline.Pausable() {
		return errors.Wrapf(ErrNotSupported, "resume timeline %s", c.timeline.ID())
	}
	if c.status != StatusPaused {
		return errors.Wrapf(ErrInvalidTransition, "resume from %s", c.status)
	}

	c.status = StatusRunning
	c.lastTick = c.clock.Now()
	c.startTickerLocked()

	zlog.Debug().Msgf("session: resumed: session=%s phase=%d elapsed=%v", c.id, c.phaseIndex, c.phaseElapsed)

	c.emitLocked(EventResumed)
	return nil
}

// Cancel stops the session. It is safe to call repeatedly and from any
// status. Once it returns no further snapshot is delivered and no clock
// token is held.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickerLocked()

	if c.status.IsTerminal() {
		return
	}

	c.status = StatusCancelled

	zlog.Debug().Msgf("session: cancelled: session=%s phase=%d elapsed=%v", c.id, c.phaseIndex, c.phaseElapsed)

	c.emitLocked(EventCancelled)
	close(c.done)
}

// Repeat creates a new idle session of the same timeline and options.
// Only valid once this session has reached a terminal status.
func (c *Controller) Repeat() (*Controller, error) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if !status.IsTerminal() {
		return nil, errors.Wrapf(ErrInvalidTransition, "repeat from %s", status)
	}
	return New(c.timeline, c.opts), nil
}

// WaitSink blocks until the completion sink call, if any, has returned.
func (c *Controller) WaitSink() {
	c.dispatcher.Wait()
}

// onTick is the tick source callback.
func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale callback from a replaced or cancelled token
	if gen != c.tickGen || c.status != StatusRunning {
		return
	}
	c.tickLocked()
}

// tickLocked advances the session by the wall time since the previous tick.
// Must be called with lock held.
func (c *Controller) tickLocked() {
	now := c.clock.Now()
	delta := now.Sub(c.lastTick)
	c.lastTick = now
	if delta < 0 {
		// Wall clock stepped backwards
		delta = 0
	}

	p, _ := c.timeline.PhaseAt(c.phaseIndex)
	c.phaseElapsed += delta

	if c.phaseElapsed >= p.Duration {
		next := c.timeline.NextActive(c.phaseIndex + 1)
		if next < 0 {
			c.phaseElapsed = p.Duration
			c.completeLocked()
			return
		}

		// Overflow is truncated; the next phase starts from zero
		c.phaseIndex = next
		c.phaseElapsed = 0
		c.instructionIndex = 0

		zlog.Debug().Msgf("session: phase changed: session=%s phase=%d id=%s", c.id, next, c.currentPhaseLocked().ID)

		c.emitLocked(EventPhaseChanged)
		return
	}

	if idx := phase.InstructionIndex(p, c.phaseElapsed); idx != c.instructionIndex {
		c.instructionIndex = idx
		c.emitLocked(EventInstructionChanged)
	}
}

// completeLocked moves to StatusComplete and dispatches the record once.
// Must be called with lock held.
func (c *Controller) completeLocked() {
	if c.completed {
		return
	}
	c.completed = true

	c.stopTickerLocked()
	c.status = StatusComplete

	rec := practice.NewRecord(c.id, c.timeline.ID(), c.totalElapsedLocked(), c.clock.Now())
	zlog.Info().Msgf("session: completed: session=%s timeline=%s elapsed=%v", c.id, rec.TimelineID, rec.TotalElapsed)

	c.dispatcher.Dispatch(rec)
	c.emitLocked(EventCompleted)
	close(c.done)
}

// startTickerLocked schedules the single tick source.
// Must be called with lock held.
func (c *Controller) startTickerLocked() {
	c.stopTickerLocked()

	gen := c.tickGen
	c.tickToken = c.clock.Every(c.opts.Resolution, func() {
		c.onTick(gen)
	})
}

// stopTickerLocked cancels the tick source, if any.
// Must be called with lock held.
func (c *Controller) stopTickerLocked() {
	c.tickGen++
	if c.tickToken != 0 {
		c.clock.Cancel(c.tickToken)
		c.tickToken = 0
	}
}

func (c *Controller) currentPhaseLocked() phase.Phase {
	p, _ := c.timeline.PhaseAt(c.phaseIndex)
	return p
}

func (c *Controller) totalElapsedLocked() time.Duration {
	return c.timeline.OffsetOf(c.phaseIndex) + c.phaseElapsed
}

func (c *Controller) snapshotLocked(ev EventType) Snapshot {
	p := c.currentPhaseLocked()
	var ins phase.Instruction
	if c.instructionIndex < len(p.Instructions) {
		ins = p.Instructions[c.instructionIndex]
	}

	return Snapshot{
		SessionID:        c.id,
		TimelineID:       c.timeline.ID(),
		Event:            ev,
		Status:           c.status,
		PhaseID:          p.ID,
		PhaseIndex:       c.phaseIndex,
		PhaseElapsed:     c.phaseElapsed,
		PhaseDuration:    p.Duration,
		InstructionIndex: c.instructionIndex,
		Instruction:      ins,
		TotalElapsed:     c.totalElapsedLocked(),
		TotalDuration:    c.timeline.TotalDuration(),
	}
}

// emitLocked delivers a snapshot to every listener.
// Must be called with lock held.
func (c *Controller) emitLocked(ev EventType) {
	s := c.snapshotLocked(ev)
	s.Seq = c.notifier.NextSequenceNo()
	c.notifier.Broadcast(s)
}
