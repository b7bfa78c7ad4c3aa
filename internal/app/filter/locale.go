package filter

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/stillpoint/internal/domain/phase"
)

// LocaleConfig represents the configuration for LocaleFilter.
type LocaleConfig struct {
	Locale    string `yaml:"locale" mapstructure:"locale" default:"en" validate:"required,min=2"`
	AllowKeys bool   `yaml:"allow_keys" mapstructure:"allow_keys"`
}

// LocaleFilter rejects timelines with instructions lacking text in a required locale.
type LocaleFilter struct {
	config *LocaleConfig
}

// NewLocaleFilter creates a new locale filter.
func NewLocaleFilter() *LocaleFilter {
	return &LocaleFilter{}
}

func (f *LocaleFilter) Name() string {
	return "locale_filter"
}

func (f *LocaleFilter) Description() string {
	return "Checks that every instruction has text in the required locale"
}

func (f *LocaleFilter) ReturnCodes() []string {
	return []string{"missing_locale"}
}

func (f *LocaleFilter) ValidateConfig(settings map[string]any) error {
	var config LocaleConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("locale filter config: %+v", config)
	return nil
}

func (f *LocaleFilter) Check(ctx context.Context, tl *phase.Timeline) Result {
	if f.config == nil {
		return Accept()
	}

	for _, p := range tl.Phases() {
		for i, ins := range p.Instructions {
			if ins.Text[f.config.Locale] != "" {
				continue
			}
			// Host-resolved references are acceptable when allowed
			if f.config.AllowKeys && ins.Key != "" {
				continue
			}
			return Reject("missing_locale",
				fmt.Sprintf("phase %s instruction %d has no %q text", p.ID, i, f.config.Locale))
		}
	}
	return Accept()
}

func init() {
	Register("locale_filter", func() Filter {
		return NewLocaleFilter()
	})
}
