package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/stillpoint/internal/domain/phase"
)

func timelineOfMinutes(minutes float64) *phase.Timeline {
	return phase.MustTimeline(phase.TimelineConfig{
		ID: "test",
		Phases: []phase.PhaseConfig{{
			ID:           "only",
			DurationMs:   int64(minutes * 60000),
			Instructions: []phase.Instruction{{Text: map[string]string{"en": "Rest"}}},
		}},
	})
}

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		minMinutes   float64
		maxMinutes   float64
		totalMinutes float64
		shouldReject bool
		wantCode     string
		description  string
	}{
		{
			name:         "Within limits",
			minMinutes:   2.0,
			maxMinutes:   5.0,
			totalMinutes: 3,
			shouldReject: false,
			description:  "Should accept timeline within min/max limits",
		},
		{
			name:         "Too short",
			minMinutes:   3.0,
			maxMinutes:   0,
			totalMinutes: 2,
			shouldReject: true,
			wantCode:     "duration_too_short",
			description:  "Should reject timeline shorter than min",
		},
		{
			name:         "Too long",
			minMinutes:   1.0,
			maxMinutes:   5.0,
			totalMinutes: 6,
			shouldReject: true,
			wantCode:     "duration_limit_exceeded",
			description:  "Should reject timeline longer than max",
		},
		{
			name:         "Exact min",
			minMinutes:   3.0,
			maxMinutes:   0,
			totalMinutes: 3,
			shouldReject: false,
			description:  "Should accept timeline exactly at min",
		},
		{
			name:         "Exact max",
			minMinutes:   1.0,
			maxMinutes:   5.0,
			totalMinutes: 5,
			shouldReject: false,
			description:  "Should accept timeline exactly at max",
		},
		{
			name:         "Below minimum",
			minMinutes:   2.0,
			maxMinutes:   0,
			totalMinutes: 1.5,
			shouldReject: true,
			wantCode:     "duration_too_short",
			description:  "Should reject timeline below minimum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			// Manually configuring for test by setting config directly
			f.config = &DurationLimitConfig{
				MinMinutes: tt.minMinutes,
				MaxMinutes: tt.maxMinutes,
			}

			result := f.Check(context.Background(), timelineOfMinutes(tt.totalMinutes))

			if tt.shouldReject {
				assert.False(t, result.Accepted, tt.description)
				assert.Equal(t, tt.wantCode, result.Code)
				assert.NotEmpty(t, result.Detail)
			} else {
				assert.True(t, result.Accepted, tt.description)
			}
		})
	}
}

func TestDurationLimitFilter_ReturnCodes(t *testing.T) {
	f := NewDurationLimitFilter()
	assert.ElementsMatch(t, []string{"duration_too_short", "duration_limit_exceeded"}, f.ReturnCodes())

	// Every code Check produces is advertised
	f.config = &DurationLimitConfig{MinMinutes: 2, MaxMinutes: 3}
	for _, minutes := range []float64{1, 4} {
		result := f.Check(context.Background(), timelineOfMinutes(minutes))
		assert.False(t, result.Accepted)
		assert.Contains(t, f.ReturnCodes(), result.Code)
	}
}

func TestDurationLimitFilter_Unconfigured(t *testing.T) {
	f := NewDurationLimitFilter()
	assert.True(t, f.Check(context.Background(), timelineOfMinutes(0.1)).Accepted)
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		wantErr  bool
		wantMin  float64
	}{
		{
			name: "Valid config",
			settings: map[string]interface{}{
				"min_minutes": 2.5,
				"max_minutes": 5.0,
			},
			wantErr: false,
			wantMin: 2.5,
		},
		{
			name: "Valid integers",
			settings: map[string]interface{}{
				"min_minutes": 2,
				"max_minutes": 5,
			},
			wantErr: false,
			wantMin: 2,
		},
		{
			name: "Invalid min > max",
			settings: map[string]interface{}{
				"min_minutes": 10.0,
				"max_minutes": 5.0,
			},
			wantErr: true,
		},
		{
			name: "Invalid negative min",
			settings: map[string]interface{}{
				"min_minutes": -1.0,
			},
			wantErr: true,
		},
		{
			name: "Zero min (uses default min=1)",
			settings: map[string]interface{}{
				"min_minutes": 0.0,
			},
			wantErr: false,
			wantMin: 1,
		},
		{
			name:     "Nil settings use defaults",
			settings: nil,
			wantErr:  false,
			wantMin:  1,
		},
		{
			name: "Invalid negative max",
			settings: map[string]interface{}{
				"max_minutes": -3.0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			err := f.ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantMin, f.config.MinMinutes)
		})
	}
}
