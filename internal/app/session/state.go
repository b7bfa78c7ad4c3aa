// Package session provides the controller that runs a phase timeline.
package session

// Status represents the session lifecycle status.
type Status int

const (
	StatusIdle      Status = iota // Created, not started
	StatusRunning                 // Tick source active
	StatusPaused                  // Tick source stopped, elapsed time kept
	StatusComplete                // Last phase finished naturally
	StatusCancelled               // Stopped explicitly
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusCancelled
}
