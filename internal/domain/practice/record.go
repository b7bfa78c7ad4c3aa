// Package practice provides the practice Record domain entity.
package practice

import "time"

// Record is the payload handed to a completion sink when a session finishes naturally.
type Record struct {
	SessionID    string        // Session UUID
	TimelineID   string        // Practice type (timeline id)
	TotalElapsed time.Duration // Time spent in the session
	CompletedAt  time.Time     // Completion time
}

// NewRecord creates a new practice record.
func NewRecord(sessionID, timelineID string, totalElapsed time.Duration, completedAt time.Time) Record {
	return Record{
		SessionID:    sessionID,
		TimelineID:   timelineID,
		TotalElapsed: totalElapsed,
		CompletedAt:  completedAt,
	}
}

// Minutes returns the elapsed time in whole minutes, rounded to nearest.
func (r Record) Minutes() int {
	return int(r.TotalElapsed.Round(time.Minute) / time.Minute)
}
