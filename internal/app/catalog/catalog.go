// Package catalog provides the set of practice timelines known to a host.
package catalog

import (
	"context"
	_ "embed"
	"os"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/stillpoint/internal/app/filter"
	"github.com/osa030/stillpoint/internal/domain/phase"
)

//go:embed practices.yaml
var builtinYAML []byte

// File is the on-disk layout of a catalog file.
type File struct {
	Practices []phase.TimelineConfig `yaml:"practices"`
}

// Parse decodes catalog YAML.
func Parse(data []byte) ([]phase.TimelineConfig, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	return f.Practices, nil
}

// LoadFile reads and decodes a catalog file.
func LoadFile(path string) ([]phase.TimelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read catalog file")
	}
	cfgs, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	return cfgs, nil
}

// BuiltinConfigs returns the configurations of the built-in practices.
func BuiltinConfigs() []phase.TimelineConfig {
	cfgs, err := Parse(builtinYAML)
	if err != nil {
		panic(err)
	}
	return cfgs
}

// Merge overlays overrides on base. An override with an existing id replaces
// it in place; new ids are appended in order.
func Merge(base, overrides []phase.TimelineConfig) []phase.TimelineConfig {
	merged := make([]phase.TimelineConfig, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, c := range merged {
		index[c.ID] = i
	}
	for _, o := range overrides {
		if i, ok := index[o.ID]; ok {
			merged[i] = o
			continue
		}
		index[o.ID] = len(merged)
		merged = append(merged, o)
	}
	return merged
}

// Catalog is an ordered, read-only set of timelines.
type Catalog struct {
	timelines []*phase.Timeline
	byID      map[string]*phase.Timeline
}

// New builds timelines from cfgs. Timelines rejected by chain are left out
// with a warning; a malformed configuration is an error.
// chain may be nil.
func New(ctx context.Context, cfgs []phase.TimelineConfig, chain *filter.Chain) (*Catalog, error) {
	c := &Catalog{
		timelines: make([]*phase.Timeline, 0, len(cfgs)),
		byID:      make(map[string]*phase.Timeline, len(cfgs)),
	}

	for _, cfg := range cfgs {
		tl, err := phase.NewTimeline(cfg)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byID[tl.ID()]; dup {
			return nil, &phase.ConfigError{TimelineID: tl.ID(), Err: errors.New("duplicate practice id")}
		}
		if chain != nil {
			if result := chain.Execute(ctx, tl); !result.Accepted {
				zlog.Warn().Msgf("catalog: practice rejected: id=%s, code=%s, detail=%s",
					tl.ID(), result.Code, result.Detail)
				continue
			}
		}
		c.timelines = append(c.timelines, tl)
		c.byID[tl.ID()] = tl
	}

	if len(c.timelines) == 0 {
		return nil, errors.New("catalog has no usable practices")
	}
	zlog.Debug().Msgf("catalog: loaded: count=%d", len(c.timelines))
	return c, nil
}

// Builtin returns a catalog of the built-in practices without filtering.
func Builtin() *Catalog {
	c, err := New(context.Background(), BuiltinConfigs(), nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the timeline with the given id.
func (c *Catalog) Get(id string) (*phase.Timeline, bool) {
	tl, ok := c.byID[id]
	return tl, ok
}

// IDs returns the practice ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.timelines))
	for i, tl := range c.timelines {
		ids[i] = tl.ID()
	}
	return ids
}

// Timelines returns the timelines in catalog order.
func (c *Catalog) Timelines() []*phase.Timeline {
	out := make([]*phase.Timeline, len(c.timelines))
	copy(out, c.timelines)
	return out
}

// Len returns the number of practices.
func (c *Catalog) Len() int {
	return len(c.timelines)
}
