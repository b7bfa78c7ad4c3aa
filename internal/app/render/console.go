// Package render binds session snapshots to a text display.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/osa030/stillpoint/internal/app/session"
	"github.com/osa030/stillpoint/internal/domain/phase"
)

// Console writes one line per observable session change.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	locale string
}

// NewConsole creates a console renderer writing to out. Instruction text is
// shown in locale, falling back as phase.Instruction.Localized does.
func NewConsole(out io.Writer, locale string) *Console {
	if locale == "" {
		locale = phase.DefaultLocale
	}
	return &Console{out: out, locale: locale}
}

// Bind subscribes the renderer to c and returns the unsubscribe func.
func (r *Console) Bind(c *session.Controller) func() {
	return c.Subscribe(r.Render)
}

// Render writes the line for s. Snapshots read on demand are ignored.
func (r *Console) Render(s session.Snapshot) {
	line := r.format(s)
	if line == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

func (r *Console) format(s session.Snapshot) string {
	switch s.Event {
	case session.EventStarted:
		return fmt.Sprintf("%s started (%s)\n%s", s.TimelineID, FormatClock(s.TotalDuration), r.phaseLine(s))
	case session.EventPhaseChanged:
		return r.phaseLine(s)
	case session.EventInstructionChanged:
		return "  " + r.text(s.Instruction)
	case session.EventPaused:
		return fmt.Sprintf("paused at %s / %s", FormatClock(s.TotalElapsed), FormatClock(s.TotalDuration))
	case session.EventResumed:
		return fmt.Sprintf("resumed at %s / %s", FormatClock(s.TotalElapsed), FormatClock(s.TotalDuration))
	case session.EventCompleted:
		return fmt.Sprintf("complete: %s", FormatClock(s.TotalElapsed))
	case session.EventCancelled:
		return fmt.Sprintf("cancelled at %s / %s", FormatClock(s.TotalElapsed), FormatClock(s.TotalDuration))
	default:
		return ""
	}
}

func (r *Console) phaseLine(s session.Snapshot) string {
	return fmt.Sprintf("[%s] %s %3.0f%%\n  %s",
		s.PhaseID, FormatClock(s.PhaseDuration), s.Progress()*100, r.text(s.Instruction))
}

func (r *Console) text(ins phase.Instruction) string {
	return strings.TrimSpace(ins.Localized(r.locale))
}

// FormatClock formats d as mm:ss, or h:mm:ss from one hour up.
// Partial seconds are rounded down.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, sec := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
