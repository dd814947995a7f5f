package config

import "time"

// ParsingConfig drives mode selection, the page scheduler and table merging.
type ParsingConfig struct {
	ForceOCR            bool
	EnableHybrid        bool
	ConfidenceThreshold float64
	ParallelPages       int

	EnableTableMerge     bool
	TableMergeSimilarity float64
	TableMergeBottom     float64
	TableMergeTop        float64

	EnableTableDetection bool

	PageTimeout          time.Duration
	MaxTotalTimeout      time.Duration
	EnableDynamicTimeout bool
	TimeoutMultiplier    float64
	TimeoutBuffer        time.Duration
	MaxPageRetries       int

	RenderDPI    int
	RenderFormat string
	RendererPath string
}

func loadParsingConfig() ParsingConfig {
	return ParsingConfig{
		ForceOCR:            getEnvBool("PARSING_FORCE_OCR", false),
		EnableHybrid:        getEnvBool("PARSING_ENABLE_HYBRID", true),
		ConfidenceThreshold: getEnvFloat("PARSING_CONFIDENCE_THRESHOLD", 0.0),
		ParallelPages:       getEnvInt("PARSING_PARALLEL_PAGES", 4),

		EnableTableMerge:     getEnvBool("PARSING_ENABLE_TABLE_MERGE", true),
		TableMergeSimilarity: getEnvFloat("PARSING_TABLE_MERGE_HEADER_SIMILARITY", 0.7),
		TableMergeBottom:     getEnvFloat("PARSING_TABLE_MERGE_BOTTOM_RATIO", 0.85),
		TableMergeTop:        getEnvFloat("PARSING_TABLE_MERGE_TOP_RATIO", 0.15),

		EnableTableDetection: getEnvBool("PARSING_ENABLE_TABLE_DETECTION", true),

		PageTimeout:          getEnvDuration("PARSING_PAGE_TIMEOUT_SECONDS", 60*time.Second),
		MaxTotalTimeout:      getEnvDuration("PARSING_MAX_TOTAL_TIMEOUT_SECONDS", time.Hour),
		EnableDynamicTimeout: getEnvBool("PARSING_ENABLE_DYNAMIC_TIMEOUT", true),
		TimeoutMultiplier:    getEnvFloat("PARSING_TIMEOUT_MULTIPLIER", 3.0),
		TimeoutBuffer:        getEnvDuration("PARSING_TIMEOUT_BUFFER", 30*time.Second),
		MaxPageRetries:       getEnvInt("PARSING_MAX_PAGE_RETRIES", 3),

		RenderDPI:    getEnvInt("PARSING_RENDER_DPI", 300),
		RenderFormat: getEnv("PARSING_RENDER_FORMAT", "png"),
		RendererPath: getEnv("PARSING_RENDERER_PATH", "pdftoppm"),
	}
}

// CacheConfig selects the parse-state store.
type CacheConfig struct {
	Enabled bool
	// Backend is "memory", "redis", "postgres" or "sqlite".
	Backend   string
	TTL       time.Duration
	KeyPrefix string
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:   getEnvBool("PARSING_ENABLE_CACHE", true),
		Backend:   getEnv("PARSECACHE_BACKEND", "memory"),
		TTL:       getEnvDuration("PARSING_CACHE_TTL", 24*time.Hour),
		KeyPrefix: getEnv("PARSECACHE_KEY_PREFIX", "parsecache"),
	}
}
