// Package phase provides the Phase and Timeline domain entities.
package phase

import (
	"sort"
	"time"
)

// DefaultLocale is used when an instruction has no text for the requested locale.
const DefaultLocale = "en"

// Instruction is one instructional text shown during a phase.
// Text is keyed by locale; Key is a reference resolved by the host.
type Instruction struct {
	Key  string            `yaml:"key,omitempty"`
	Text map[string]string `yaml:"text,omitempty"`
}

// IsEmpty reports whether the instruction carries neither text nor a key.
func (i Instruction) IsEmpty() bool {
	if i.Key != "" {
		return false
	}
	for _, v := range i.Text {
		if v != "" {
			return false
		}
	}
	return true
}

// Clone returns a copy of i that shares no memory with it.
func (i Instruction) Clone() Instruction {
	c := Instruction{Key: i.Key}
	if i.Text != nil {
		c.Text = make(map[string]string, len(i.Text))
		for k, v := range i.Text {
			c.Text[k] = v
		}
	}
	return c
}

// Localized returns the text for locale.
// Falls back to DefaultLocale, then to the first locale in lexical order,
// then to Key.
func (i Instruction) Localized(locale string) string {
	if v, ok := i.Text[locale]; ok && v != "" {
		return v
	}
	if v, ok := i.Text[DefaultLocale]; ok && v != "" {
		return v
	}
	if len(i.Text) > 0 {
		locales := make([]string, 0, len(i.Text))
		for l := range i.Text {
			locales = append(locales, l)
		}
		sort.Strings(locales)
		for _, l := range locales {
			if v := i.Text[l]; v != "" {
				return v
			}
		}
	}
	return i.Key
}

// Phase represents one timed stage of a guided session.
type Phase struct {
	ID               string        // Unique within a timeline
	Duration         time.Duration // Zero means the phase is skipped
	Instructions     []Instruction // Never empty
	RotationInterval time.Duration // Zero means no rotation
}

// Skipped reports whether the phase has zero duration.
func (p Phase) Skipped() bool {
	return p.Duration == 0
}

// Clone returns a copy of p whose instructions share no memory with p.
func (p Phase) Clone() Phase {
	c := p
	c.Instructions = make([]Instruction, len(p.Instructions))
	for i, ins := range p.Instructions {
		c.Instructions[i] = ins.Clone()
	}
	return c
}

// InstructionIndex returns the instruction visible after elapsed time within the phase.
// Instructions cycle modulo their count, so long phases repeat them.
func InstructionIndex(p Phase, elapsed time.Duration) int {
	if p.RotationInterval <= 0 || len(p.Instructions) == 0 || elapsed <= 0 {
		return 0
	}
	return int((elapsed / p.RotationInterval) % time.Duration(len(p.Instructions)))
}

