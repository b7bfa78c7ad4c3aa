package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func texts(n int) []Instruction {
	result := make([]Instruction, n)
	for i := range result {
		result[i] = Instruction{Key: string(rune('a' + i))}
	}
	return result
}

func TestInstructionIndex_Rotation(t *testing.T) {
	p := Phase{
		ID:               "breathe",
		Duration:         10 * time.Second,
		Instructions:     texts(3),
		RotationInterval: 4 * time.Second,
	}

	got := make([]int, 0, 10)
	for ms := 0; ms < 10000; ms += 1000 {
		got = append(got, InstructionIndex(p, time.Duration(ms)*time.Millisecond))
	}

	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2}, got)
}

func TestInstructionIndex(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		count    int
		elapsed  time.Duration
		expected int
	}{
		{
			name:     "no rotation interval",
			interval: 0,
			count:    3,
			elapsed:  9 * time.Second,
			expected: 0,
		},
		{
			name:     "cycles past the last instruction",
			interval: time.Second,
			count:    3,
			elapsed:  4500 * time.Millisecond,
			expected: 1,
		},
		{
			name:     "exact boundary advances",
			interval: 2 * time.Second,
			count:    2,
			elapsed:  2 * time.Second,
			expected: 1,
		},
		{
			name:     "single instruction never rotates",
			interval: time.Second,
			count:    1,
			elapsed:  7 * time.Second,
			expected: 0,
		},
		{
			name:     "negative elapsed",
			interval: time.Second,
			count:    3,
			elapsed:  -time.Second,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Phase{
				ID:               "p",
				Duration:         time.Minute,
				Instructions:     texts(tt.count),
				RotationInterval: tt.interval,
			}
			assert.Equal(t, tt.expected, InstructionIndex(p, tt.elapsed))
		})
	}
}

func TestInstruction_Localized(t *testing.T) {
	tests := []struct {
		name        string
		instruction Instruction
		locale      string
		expected    string
	}{
		{
			name:        "requested locale",
			instruction: Instruction{Text: map[string]string{"en": "Breathe in", "ja": "息を吸って"}},
			locale:      "ja",
			expected:    "息を吸って",
		},
		{
			name:        "falls back to default locale",
			instruction: Instruction{Text: map[string]string{"en": "Breathe in", "ja": "息を吸って"}},
			locale:      "fr",
			expected:    "Breathe in",
		},
		{
			name:        "falls back to first locale",
			instruction: Instruction{Text: map[string]string{"ja": "息を吸って", "de": "Einatmen"}},
			locale:      "fr",
			expected:    "Einatmen",
		},
		{
			name:        "falls back to key",
			instruction: Instruction{Key: "breath.in"},
			locale:      "en",
			expected:    "breath.in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.instruction.Localized(tt.locale))
		})
	}
}

func TestInstruction_IsEmpty(t *testing.T) {
	assert.True(t, Instruction{}.IsEmpty())
	assert.True(t, Instruction{Text: map[string]string{"en": ""}}.IsEmpty())
	assert.False(t, Instruction{Key: "k"}.IsEmpty())
	assert.False(t, Instruction{Text: map[string]string{"en": "x"}}.IsEmpty())
}
