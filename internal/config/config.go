// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all broadphase service settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// BROADPHASE CAPACITY CONFIGURATION
// =============================================================================

// CapacityConfig sizes the broadphase's construction-time buffers. Every
// field here is allocated once, up front — changing these values after
// New has been called requires building a new Broadphase.
// The per-entity overlap cap (see spatial.maxOverlapsPerEntity) is a
// compile-time array size, not a construction-time parameter, so it has no
// field here — CapacityConfig only covers what New actually takes.
type CapacityConfig struct {
	MaxEntities int // hard cap on simultaneously-registered proxies
	MaxOverlaps int // hard cap on simultaneously-live pairs
}

// DefaultCapacity returns the default capacity configuration.
// This is the SINGLE SOURCE OF TRUTH for broadphase sizing.
func DefaultCapacity() CapacityConfig {
	return CapacityConfig{
		MaxEntities: 10_000,
		MaxOverlaps: 65_536,
	}
}

// CapacityFromEnv returns capacity configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func CapacityFromEnv() CapacityConfig {
	cfg := DefaultCapacity()

	if v := getEnvInt("BROADPHASE_MAX_ENTITIES", 0); v > 0 {
		cfg.MaxEntities = v
	}
	if v := getEnvInt("BROADPHASE_MAX_OVERLAPS", 0); v > 0 {
		cfg.MaxOverlaps = v
	}

	return cfg
}

// =============================================================================
// TICK CONFIGURATION
// =============================================================================

// TickConfig controls the command-queue drain loop that owns the Broadphase.
type TickConfig struct {
	Rate        int // ticks per second
	QueueDepth  int // CommandQueue capacity (rounded up to a power of 2)
	DrainPerTick int // max commands applied per tick
}

// DefaultTick returns the default tick configuration.
func DefaultTick() TickConfig {
	return TickConfig{
		Rate:         60,
		QueueDepth:   4096,
		DrainPerTick: 1024,
	}
}

// TickFromEnv returns tick configuration with environment variable overrides.
func TickFromEnv() TickConfig {
	cfg := DefaultTick()

	if v := getEnvInt("BROADPHASE_TICK_RATE", 0); v > 0 {
		cfg.Rate = v
	}
	if v := getEnvInt("BROADPHASE_QUEUE_DEPTH", 0); v > 0 {
		cfg.QueueDepth = v
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection for the ambient HTTP/WebSocket layer.
type ResourceLimits struct {
	MaxWSConnectionsTotal  int
	MaxWSConnectionsPerIP  int
	RateLimitPerSecond     float64
	RateLimitBurst         int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxWSConnectionsTotal: 500,
		MaxWSConnectionsPerIP: 5,
		RateLimitPerSecond:    20,
		RateLimitBurst:        40,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if v := getEnvInt("BROADPHASE_MAX_WS_TOTAL", 0); v > 0 {
		cfg.MaxWSConnectionsTotal = v
	}
	if v := getEnvInt("BROADPHASE_MAX_WS_PER_IP", 0); v > 0 {
		cfg.MaxWSConnectionsPerIP = v
	}
	if v := getEnvFloat("BROADPHASE_RATE_LIMIT", -1); v >= 0 {
		cfg.RateLimitPerSecond = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AdminToken     string
	AllowedOrigins []string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AdminToken:     "",
		AllowedOrigins: []string{"*"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if tok := os.Getenv("ADMIN_TOKEN"); tok != "" {
		cfg.AdminToken = tok
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Capacity CapacityConfig
	Tick     TickConfig
	Limits   ResourceLimits
	Server   ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Capacity: CapacityFromEnv(),
		Tick:     TickFromEnv(),
		Limits:   LimitsFromEnv(),
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

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
