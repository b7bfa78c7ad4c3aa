package session

import (
	"time"

	"github.com/osa030/stillpoint/internal/domain/phase"
)

// EventType names the change that produced a snapshot.
type EventType int

const (
	EventNone               EventType = iota // Snapshot read on demand
	EventStarted                             // Session started
	EventPhaseChanged                        // A new phase became current
	EventInstructionChanged                  // The visible instruction changed
	EventPaused                              // Session paused
	EventResumed                             // Session resumed
	EventCompleted                           // Last phase finished
	EventCancelled                           // Session cancelled
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventStarted:
		return "started"
	case EventPhaseChanged:
		return "phase_changed"
	case EventInstructionChanged:
		return "instruction_changed"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a session at one observable change.
type Snapshot struct {
	Seq              uint64 // Strictly increasing per session; zero for on-demand reads
	SessionID        string
	TimelineID       string
	Event            EventType
	Status           Status
	PhaseID          string
	PhaseIndex       int
	PhaseElapsed     time.Duration
	PhaseDuration    time.Duration
	InstructionIndex int
	Instruction      phase.Instruction
	TotalElapsed     time.Duration
	TotalDuration    time.Duration
}

// Progress returns the completed fraction of the session in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.TotalDuration <= 0 {
		return 0
	}
	p := float64(s.TotalElapsed) / float64(s.TotalDuration)
	if p > 1 {
		return 1
	}
	return p
}

// PhaseRemaining returns the time left in the current phase.
func (s Snapshot) PhaseRemaining() time.Duration {
	remaining := s.PhaseDuration - s.PhaseElapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
