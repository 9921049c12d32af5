package search

import (
	"fmt"
	"math"
)

// Config bounds the adaptive search.
type Config struct {
	// FloorMeters is the radius of the first round.
	FloorMeters int `json:"floor_meters" yaml:"floor_meters"`
	// CeilingMeters is the largest radius ever queried.
	CeilingMeters int `json:"ceiling_meters" yaml:"ceiling_meters"`
	// BaseLimit is the result cap at the floor radius.
	BaseLimit int `json:"base_limit" yaml:"base_limit"`
	// MaxLimit caps the per-round result cap.
	MaxLimit int `json:"max_limit" yaml:"max_limit"`
	// ProximityMeters and NameSimilarity define the "same place" rule.
	ProximityMeters float64 `json:"proximity_meters" yaml:"proximity_meters"`
	NameSimilarity  float64 `json:"name_similarity" yaml:"name_similarity"`
}

// DefaultConfig returns a 5 km to 20 km search with 75 m / 0.85 dedup thresholds.
func DefaultConfig() Config {
	return Config{
		FloorMeters:     5000,
		CeilingMeters:   20000,
		BaseLimit:       10,
		MaxLimit:        50,
		ProximityMeters: 75,
		NameSimilarity:  0.85,
	}
}

// Validate checks the bounds are usable.
func (c Config) Validate() error {
	if c.FloorMeters <= 0 {
		return fmt.Errorf("floor_meters must be positive, got %d", c.FloorMeters)
	}
	if c.CeilingMeters < c.FloorMeters {
		return fmt.Errorf("ceiling_meters (%d) must be >= floor_meters (%d)", c.CeilingMeters, c.FloorMeters)
	}
	if c.BaseLimit <= 0 {
		return fmt.Errorf("base_limit must be positive, got %d", c.BaseLimit)
	}
	if c.MaxLimit < c.BaseLimit {
		return fmt.Errorf("max_limit (%d) must be >= base_limit (%d)", c.MaxLimit, c.BaseLimit)
	}
	if c.ProximityMeters < 0 {
		return fmt.Errorf("proximity_meters must not be negative, got %g", c.ProximityMeters)
	}
	if c.NameSimilarity < 0 || c.NameSimilarity > 1 {
		return fmt.Errorf("name_similarity must be within [0,1], got %g", c.NameSimilarity)
	}
	return nil
}

// Rule returns the dedup rule configured by c.
func (c Config) Rule() Rule {
	return Rule{ProximityMeters: c.ProximityMeters, NameSimilarity: c.NameSimilarity}
}

// LimitFor scales the result cap with the radius, since density drops as the
// area grows: BaseLimit*radius/floor clamped to [BaseLimit, MaxLimit].
func (c Config) LimitFor(radius int) int {
	limit := int(int64(c.BaseLimit) * int64(radius) / int64(c.FloorMeters))
	return min(max(limit, c.BaseLimit), c.MaxLimit)
}

// MaxRounds is ceil(log2(ceiling/floor)) + 1.
func (c Config) MaxRounds() int {
	if c.CeilingMeters <= c.FloorMeters {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(c.CeilingMeters)/float64(c.FloorMeters)))) + 1
}

// nextRadius doubles r, capped at the ceiling.
func (c Config) nextRadius(r int) int {
	if r > c.CeilingMeters/2 {
		return c.CeilingMeters
	}
	return r * 2
}
