package recurrence

import (
	"log/slog"
	"time"
)

// fallbackPreviewCount is used when a config leaves DefaultPreviewCount unset
const fallbackPreviewCount = 5

// EngineConfig controls preview sizing, preview caching and logging
type EngineConfig struct {
	// CacheEnabled turns on the preview cache described by CacheConfig
	CacheEnabled bool
	CacheConfig  CacheConfig

	DefaultPreviewCount int // previews asked for 0 or fewer occurrences get this many
	MaxPreviewCount     int // upper bound on a single preview; 0 means no bound

	// Logger receives debug output; nil means slog.Default()
	Logger *slog.Logger
}

// DefaultEngineConfig suits a service rendering schedule previews on demand
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:        true,
	CacheConfig:         DefaultCacheConfig,
	DefaultPreviewCount: fallbackPreviewCount,
	MaxPreviewCount:     100,
}

// HighPerformanceConfig keeps more previews around for longer, for hosts where
// many users edit the same few schedules
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},
	DefaultPreviewCount: fallbackPreviewCount,
	MaxPreviewCount:     50,
}

// LowMemoryConfig holds few previews and caps their length
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
	DefaultPreviewCount: fallbackPreviewCount,
	MaxPreviewCount:     20,
}

// DisabledCacheConfig projects every preview afresh. Batch tools and tests use
// it, so the preview bound is generous.
var DisabledCacheConfig = EngineConfig{
	DefaultPreviewCount: fallbackPreviewCount,
	MaxPreviewCount:     1000,
}

// NewEngineWithConfig creates an engine from config. A zero DefaultPreviewCount
// falls back to 5.
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.DefaultPreviewCount <= 0 {
		config.DefaultPreviewCount = fallbackPreviewCount
	}

	var cache *PreviewCache
	if config.CacheEnabled {
		cache = NewPreviewCache(config.CacheConfig)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cache:  cache,
		config: config,
		logger: logger,
	}
}
