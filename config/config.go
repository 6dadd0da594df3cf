// Package config holds the simulator configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/murvsim/emu"
	"github.com/sarchlab/murvsim/timing/cache"
)

// ErrOverlappingRegions is returned when the memory regions are unordered
// or overlap.
var ErrOverlappingRegions = errors.New("memory regions overlap")

// Config holds the options of a simulation run.
type Config struct {
	// Forwarding enables operand forwarding in the pipeline. Default: true.
	Forwarding bool `json:"forwarding"`

	// MaxCycles bounds a run to completion. Default: 1000000.
	MaxCycles uint64 `json:"max_cycles"`

	// FrequencyMHz is the clock frequency of the simulated core.
	// Default: 1000 MHz.
	FrequencyMHz uint64 `json:"frequency_mhz"`

	// Regions is the memory map, ordered by address.
	Regions []emu.RegionSpec `json:"regions"`

	// TraceDB is the SQLite database the pipeline trace is written to.
	// Empty disables tracing.
	TraceDB string `json:"trace_db,omitempty"`

	// CacheProfile replays the run through an instruction and a data cache
	// and reports their hit rates. Nil disables profiling.
	CacheProfile *CacheProfile `json:"cache_profile,omitempty"`
}

// CacheProfile holds the cache geometries used for profiling.
type CacheProfile struct {
	ICache cache.Config `json:"icache"`
	DCache cache.Config `json:"dcache"`
}

// DefaultCacheProfile returns the default profiling caches.
func DefaultCacheProfile() *CacheProfile {
	return &CacheProfile{
		ICache: cache.DefaultICacheConfig(),
		DCache: cache.DefaultDCacheConfig(),
	}
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Forwarding:   true,
		MaxCycles:    1000000,
		FrequencyMHz: 1000,
		Regions:      emu.DefaultLayout(),
	}
}

// Load loads a Config from a JSON file. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Save writes the Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the cycle limit, the frequency, and the memory map.
func (c *Config) Validate() error {
	if c.MaxCycles == 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	if c.FrequencyMHz == 0 {
		return fmt.Errorf("frequency_mhz must be > 0")
	}

	hasText := false
	for i, r := range c.Regions {
		if r.End < r.Begin {
			return fmt.Errorf("region %s: end before begin", r.Name)
		}
		if i > 0 && r.Begin <= c.Regions[i-1].End {
			return fmt.Errorf("%w: %s and %s",
				ErrOverlappingRegions, c.Regions[i-1].Name, r.Name)
		}
		if r.Name == "text" {
			hasText = true
		}
	}

	if !hasText {
		return fmt.Errorf("memory map has no text region")
	}

	if c.CacheProfile != nil {
		if err := c.CacheProfile.ICache.Validate(); err != nil {
			return fmt.Errorf("icache: %w", err)
		}
		if err := c.CacheProfile.DCache.Validate(); err != nil {
			return fmt.Errorf("dcache: %w", err)
		}
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Regions = append([]emu.RegionSpec(nil), c.Regions...)
	if c.CacheProfile != nil {
		profile := *c.CacheProfile
		clone.CacheProfile = &profile
	}
	return &clone
}

// Frequency returns the clock frequency.
func (c *Config) Frequency() sim.Freq {
	return sim.Freq(c.FrequencyMHz) * sim.MHz
}

// TextRegion returns the region programs are loaded into.
func (c *Config) TextRegion() (emu.RegionSpec, bool) {
	for _, r := range c.Regions {
		if r.Name == "text" {
			return r, true
		}
	}
	return emu.RegionSpec{}, false
}

// TextBase returns the start address of the text region.
func (c *Config) TextBase() uint32 {
	if r, ok := c.TextRegion(); ok {
		return r.Begin
	}
	return emu.TextBegin
}

// NewCacheProfiler creates a profiler for the configured caches, or nil if
// profiling is disabled.
func (c *Config) NewCacheProfiler() *cache.Profiler {
	if c.CacheProfile == nil {
		return nil
	}
	return cache.NewProfiler(c.CacheProfile.ICache, c.CacheProfile.DCache)
}

// NewMemory creates a memory with the configured layout.
func (c *Config) NewMemory() (*emu.Memory, error) {
	return emu.NewMemoryWithLayout(c.Regions)
}
