// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all engine and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// WORLD & GRID CONFIGURATION
// =============================================================================

// TileSize is the fixed edge length of a grid tile in world pixels.
// The tile size never changes at runtime; only tile counts vary.
const TileSize = 64

// WorldConfig holds the tile-grid dimensions of the aquarium world.
// World pixel dimensions are always derived as tiles * TileSize.
type WorldConfig struct {
	TilesHorizontal int // Number of tile columns
	TilesVertical   int // Number of tile rows

	MinTiles int // Lower bound for either axis
	MaxTiles int // Upper bound for either axis
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		TilesHorizontal: 30,
		TilesVertical:   17,
		MinTiles:        8,
		MaxTiles:        120,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
// Out-of-range overrides are clamped into [MinTiles, MaxTiles].
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if h := getEnvInt("AQUARIUM_TILES_H", 0); h > 0 {
		cfg.TilesHorizontal = h
	}
	if v := getEnvInt("AQUARIUM_TILES_V", 0); v > 0 {
		cfg.TilesVertical = v
	}

	cfg.TilesHorizontal = clampInt(cfg.TilesHorizontal, cfg.MinTiles, cfg.MaxTiles)
	cfg.TilesVertical = clampInt(cfg.TilesVertical, cfg.MinTiles, cfg.MaxTiles)

	return cfg
}

// =============================================================================
// BEHAVIOR CONFIGURATION
// =============================================================================

// BehaviorConfig holds the tuning constants for entity motion.
// Speeds are in world pixels per millisecond before the frame-scale constant.
type BehaviorConfig struct {
	TickRate int // Simulation ticks per second

	FishSpeedMin  float64 // Base horizontal speed range for fish
	FishSpeedMax  float64
	SharkSpeedMin float64 // Sharks swim faster than fish
	SharkSpeedMax float64

	FishMaxSpeed  float64 // Mood-scaled speed ceiling per species tier
	SharkMaxSpeed float64
	SpeedFloor    float64 // Mood scaling never drops below this

	VerticalSpeedMin float64
	VerticalSpeedMax float64

	DriftIntervalMin time.Duration // Re-target window for vertical wandering
	DriftIntervalMax time.Duration

	EdgeMargin     float64 // Horizontal bounce margin outside world bounds
	VerticalMargin float64 // Top/bottom spawn and drift margin
	ReverseBias    float64 // Chance to flip back toward the interior at an edge
}

// DefaultBehavior returns the default behavior tuning.
func DefaultBehavior() BehaviorConfig {
	return BehaviorConfig{
		TickRate:         30,
		FishSpeedMin:     0.4,
		FishSpeedMax:     1.2,
		SharkSpeedMin:    0.9,
		SharkSpeedMax:    1.8,
		FishMaxSpeed:     3.0,
		SharkMaxSpeed:    5.0,
		SpeedFloor:       0.1,
		VerticalSpeedMin: 0.2,
		VerticalSpeedMax: 0.6,
		DriftIntervalMin: 3 * time.Second,
		DriftIntervalMax: 9 * time.Second,
		EdgeMargin:       48,
		VerticalMargin:   40,
		ReverseBias:      0.8,
	}
}

// BehaviorFromEnv returns behavior tuning with environment variable overrides.
func BehaviorFromEnv() BehaviorConfig {
	cfg := DefaultBehavior()

	if tps := getEnvInt("ENGINE_TICK_RATE", 0); tps > 0 {
		cfg.TickRate = tps
	}
	if v := getEnvFloat("FISH_MAX_SPEED", -1); v > 0 {
		cfg.FishMaxSpeed = v
	}
	if v := getEnvFloat("SHARK_MAX_SPEED", -1); v > 0 {
		cfg.SharkMaxSpeed = v
	}

	return cfg
}

// =============================================================================
// CULLING CONFIGURATION
// =============================================================================

// CullingConfig holds viewport culling settings.
type CullingConfig struct {
	Margin   float64       // Expansion of the visible rect on every side
	Interval time.Duration // Minimum time between full re-culls
}

// DefaultCulling returns the default culling configuration.
func DefaultCulling() CullingConfig {
	return CullingConfig{
		Margin:   50,
		Interval: 200 * time.Millisecond,
	}
}

// =============================================================================
// SYNC & RECONCILIATION CONFIGURATION
// =============================================================================

// SyncConfig holds the outbound position-sync debounce settings.
type SyncConfig struct {
	QuietWindow  time.Duration // Flush after this long without new motion
	MaxInterval  time.Duration // Never hold a pending flush longer than this
	PopulateWait time.Duration // Timeout for the initial default-population signal
}

// DefaultSync returns the default sync configuration.
func DefaultSync() SyncConfig {
	return SyncConfig{
		QuietWindow:  750 * time.Millisecond,
		MaxInterval:  5 * time.Second,
		PopulateWait: 10 * time.Second,
	}
}

// SyncFromEnv returns sync configuration with environment variable overrides.
func SyncFromEnv() SyncConfig {
	cfg := DefaultSync()

	if ms := getEnvInt("SYNC_QUIET_MS", 0); ms > 0 {
		cfg.QuietWindow = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("SYNC_MAX_INTERVAL_MS", 0); ms > 0 {
		cfg.MaxInterval = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// ENGINE RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls entity caps and pool sizing.
type ResourceLimits struct {
	MaxFish    int // Hard cap on simulated fish/shark entities
	MaxBubbles int // Hard cap on live bubble particles
	MaxObjects int // Hard cap on placed decorative objects
	PoolSize   int // Entity pool arena capacity
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxFish:    200,
		MaxBubbles: 300,
		MaxObjects: 500,
		PoolSize:   256,
	}
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds ambient audio settings.
type AudioConfig struct {
	Path       string  // OGG file to loop
	SampleRate int     // Target sample rate in Hz
	Volume     float64 // Master volume (0.0 to 1.0)
	Enabled    bool
}

// DefaultAudio returns the default ambient audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		Path:       "assets/audio/ambience.ogg",
		SampleRate: 44100,
		Volume:     0.2,
		Enabled:    true,
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if p := os.Getenv("AMBIENT_PATH"); p != "" {
		cfg.Path = p
	}
	if v := getEnvFloat("AMBIENT_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	if os.Getenv("AMBIENT_ENABLED") == "false" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 3000}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World    WorldConfig
	Behavior BehaviorConfig
	Culling  CullingConfig
	Sync     SyncConfig
	Limits   ResourceLimits
	Audio    AudioConfig
	Server   ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:    WorldFromEnv(),
		Behavior: BehaviorFromEnv(),
		Culling:  DefaultCulling(),
		Sync:     SyncFromEnv(),
		Limits:   DefaultLimits(),
		Audio:    AudioFromEnv(),
		Server:   ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
