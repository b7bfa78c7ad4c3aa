package filter

import (
	"context"
	"fmt"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/stillpoint/internal/domain/phase"
)

// RotationIntervalConfig represents the configuration for RotationIntervalFilter.
type RotationIntervalConfig struct {
	MinSeconds float64 `yaml:"min_seconds" mapstructure:"min_seconds" default:"3" validate:"gt=0"`
}

// RotationIntervalFilter rejects timelines whose instructions rotate too fast to be read.
type RotationIntervalFilter struct {
	config *RotationIntervalConfig
}

// NewRotationIntervalFilter creates a new rotation interval filter.
func NewRotationIntervalFilter() *RotationIntervalFilter {
	return &RotationIntervalFilter{}
}

func (f *RotationIntervalFilter) Name() string {
	return "rotation_interval_filter"
}

func (f *RotationIntervalFilter) Description() string {
	return "Checks that instructions stay on screen long enough to be read"
}

func (f *RotationIntervalFilter) ReturnCodes() []string {
	return []string{"rotation_too_fast"}
}

func (f *RotationIntervalFilter) ValidateConfig(settings map[string]any) error {
	var config RotationIntervalConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("rotation interval filter config: %+v", config)
	return nil
}

func (f *RotationIntervalFilter) Check(ctx context.Context, tl *phase.Timeline) Result {
	if f.config == nil {
		return Accept()
	}

	minInterval := time.Duration(f.config.MinSeconds * float64(time.Second))
	for _, p := range tl.Phases() {
		// Single-instruction phases never rotate
		if p.RotationInterval == 0 || len(p.Instructions) < 2 {
			continue
		}
		if p.RotationInterval < minInterval {
			return Reject("rotation_too_fast",
				fmt.Sprintf("phase %s rotates every %v (minimum %v)", p.ID, p.RotationInterval, minInterval))
		}
	}
	return Accept()
}

func init() {
	Register("rotation_interval_filter", func() Filter {
		return NewRotationIntervalFilter()
	})
}
