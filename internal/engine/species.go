package engine

import (
	"time"

	"aquarium/internal/config"
)

// Species identifies an entity's behavior tier. Species differences are
// data-driven traits, not separate types: a shark is a fish with a higher
// speed ceiling and base-speed range.
type Species string

const (
	SpeciesFish  Species = "fish"
	SpeciesShark Species = "shark"
)

// SpeciesTraits defines per-species motion and animation properties.
type SpeciesTraits struct {
	ID Species

	// Base horizontal speed is randomized within [BaseSpeedMin, BaseSpeedMax]
	// at spawn (pixels per millisecond before the frame-scale constant).
	BaseSpeedMin float64
	BaseSpeedMax float64

	// MaxSpeed caps mood-scaled speed. Sharks get a higher ceiling.
	MaxSpeed float64

	// Procedural animation settings. Sprite-backed visuals skip frame
	// stepping entirely.
	FrameCount        int
	AnimationInterval time.Duration

	// Visual scale factor range at spawn.
	SizeMin float64
	SizeMax float64
}

// DefaultSpeciesTraits returns the trait table derived from behavior tuning.
func DefaultSpeciesTraits(cfg config.BehaviorConfig) map[Species]SpeciesTraits {
	return map[Species]SpeciesTraits{
		SpeciesFish: {
			ID:                SpeciesFish,
			BaseSpeedMin:      cfg.FishSpeedMin,
			BaseSpeedMax:      cfg.FishSpeedMax,
			MaxSpeed:          cfg.FishMaxSpeed,
			FrameCount:        4,
			AnimationInterval: 180 * time.Millisecond,
			SizeMin:           0.7,
			SizeMax:           1.3,
		},
		SpeciesShark: {
			ID:                SpeciesShark,
			BaseSpeedMin:      cfg.SharkSpeedMin,
			BaseSpeedMax:      cfg.SharkSpeedMax,
			MaxSpeed:          cfg.SharkMaxSpeed,
			FrameCount:        6,
			AnimationInterval: 140 * time.Millisecond,
			SizeMin:           1.6,
			SizeMax:           2.4,
		},
	}
}

// TraitsFor returns the traits for a species, defaulting to fish for
// unknown values (records from older clients may carry arbitrary strings).
func TraitsFor(cfg config.BehaviorConfig, s Species) SpeciesTraits {
	traits := DefaultSpeciesTraits(cfg)
	if t, ok := traits[s]; ok {
		return t
	}
	return traits[SpeciesFish]
}
