package phase

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TimelineConfig is the declarative description of a practice timeline.
type TimelineConfig struct {
	ID       string        `yaml:"id" validate:"required"`
	Title    string        `yaml:"title"`
	Pausable bool          `yaml:"pausable"`
	Phases   []PhaseConfig `yaml:"phases" validate:"required,min=1,dive"`
}

// PhaseConfig is the declarative description of one phase.
type PhaseConfig struct {
	ID                 string        `yaml:"id" validate:"required"`
	DurationMs         int64         `yaml:"duration_ms" validate:"gte=0"`
	RotationIntervalMs int64         `yaml:"rotation_interval_ms" validate:"gte=0"`
	Instructions       []Instruction `yaml:"instructions" validate:"required,min=1"`
}

// ConfigError reports a malformed timeline configuration.
type ConfigError struct {
	TimelineID string
	PhaseID    string
	Err        error
}

func (e *ConfigError) Error() string {
	switch {
	case e.PhaseID != "":
		return fmt.Sprintf("invalid timeline %q: phase %q: %v", e.TimelineID, e.PhaseID, e.Err)
	case e.TimelineID != "":
		return fmt.Sprintf("invalid timeline %q: %v", e.TimelineID, e.Err)
	default:
		return fmt.Sprintf("invalid timeline: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Timeline is an ordered, immutable list of phases.
type Timeline struct {
	id       string
	title    string
	pausable bool
	phases   []Phase
	offsets  []time.Duration // offsets[i] is the sum of durations before phase i
	total    time.Duration
}

// NewTimeline validates cfg and builds a Timeline.
// All validation happens here; a returned Timeline is always runnable.
func NewTimeline(cfg TimelineConfig) (*Timeline, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{TimelineID: cfg.ID, Err: errors.Wrap(err, "struct validation failed")}
	}

	t := &Timeline{
		id:       cfg.ID,
		title:    cfg.Title,
		pausable: cfg.Pausable,
		phases:   make([]Phase, 0, len(cfg.Phases)),
		offsets:  make([]time.Duration, 0, len(cfg.Phases)),
	}
	if t.title == "" {
		t.title = cfg.ID
	}

	seen := make(map[string]struct{}, len(cfg.Phases))
	for _, pc := range cfg.Phases {
		if _, dup := seen[pc.ID]; dup {
			return nil, &ConfigError{TimelineID: cfg.ID, PhaseID: pc.ID, Err: errors.New("duplicate phase id")}
		}
		seen[pc.ID] = struct{}{}

		instructions := make([]Instruction, len(pc.Instructions))
		for i, ins := range pc.Instructions {
			if ins.IsEmpty() {
				return nil, &ConfigError{TimelineID: cfg.ID, PhaseID: pc.ID, Err: errors.Newf("instruction %d has neither text nor key", i)}
			}
			instructions[i] = ins.Clone()
		}

		p := Phase{
			ID:               pc.ID,
			Duration:         time.Duration(pc.DurationMs) * time.Millisecond,
			Instructions:     instructions,
			RotationInterval: time.Duration(pc.RotationIntervalMs) * time.Millisecond,
		}
		t.offsets = append(t.offsets, t.total)
		t.phases = append(t.phases, p)
		t.total += p.Duration
	}

	if t.total == 0 {
		return nil, &ConfigError{TimelineID: cfg.ID, Err: errors.New("every phase has zero duration")}
	}

	return t, nil
}

// MustTimeline is like NewTimeline but panics on error. Intended for tests and static tables.
func MustTimeline(cfg TimelineConfig) *Timeline {
	t, err := NewTimeline(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// ID returns the timeline identifier.
func (t *Timeline) ID() string {
	return t.id
}

// Title returns the display title.
func (t *Timeline) Title() string {
	return t.title
}

// Pausable reports whether sessions of this timeline support pause and resume.
func (t *Timeline) Pausable() bool {
	return t.pausable
}

// TotalDuration returns the sum of all phase durations.
func (t *Timeline) TotalDuration() time.Duration {
	return t.total
}

// PhaseCount returns the number of phases, skipped ones included.
func (t *Timeline) PhaseCount() int {
	return len(t.phases)
}

// PhaseAt returns a copy of the phase at index i.
func (t *Timeline) PhaseAt(i int) (Phase, bool) {
	if i < 0 || i >= len(t.phases) {
		return Phase{}, false
	}
	return t.phases[i].Clone(), true
}

// Phases returns a copy of the phases.
func (t *Timeline) Phases() []Phase {
	result := make([]Phase, len(t.phases))
	for i, p := range t.phases {
		result[i] = p.Clone()
	}
	return result
}

// OffsetOf returns the total duration of the phases before index i.
func (t *Timeline) OffsetOf(i int) time.Duration {
	if i < 0 {
		return 0
	}
	if i >= len(t.offsets) {
		return t.total
	}
	return t.offsets[i]
}

// NextActive returns the first index >= from whose phase is not skipped, or -1.
func (t *Timeline) NextActive(from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(t.phases); i++ {
		if !t.phases[i].Skipped() {
			return i
		}
	}
	return -1
}
