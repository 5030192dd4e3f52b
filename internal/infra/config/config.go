package config

import (
	"os"
	"strconv"
	"strings"
)

// BlobConfig points at the object-storage gateway holding processed
// chunk payloads.
type BlobConfig struct {
	GatewayURL string
	Timeout    int
}

// RedisConfig controls the optional read-through cache in front of the
// blob gateway.
type RedisConfig struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLMinutes int
}

// WebSearchConfig configures the external search provider. An empty
// APIKey soft-disables the feature.
type WebSearchConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           int
	MaxResults        int
	SearchDepth       string
	ExcludedDomains   []string
	RequestsPerSecond float64
}

// LLMConfig configures the inference service used for generation and
// the auxiliary structured calls.
type LLMConfig struct {
	URL               string
	Model             string
	AuxModel          string
	Timeout           int
	MaxOutputTokens   int
	RequestsPerSecond float64
}

// CacheConfig sizes the in-process answer cache.
type CacheConfig struct {
	Size       int
	TTLMinutes int
}

type Config struct {
	Env  string
	Port string

	Blob      BlobConfig
	Redis     RedisConfig
	WebSearch WebSearchConfig
	LLM       LLMConfig
	Cache     CacheConfig

	// Pipeline tunables; validated in the usecase layer.
	SmallPoolThreshold    int
	PrefilterLimit        int
	MinRerankScore        float64
	RecoveryTopN          int
	LowRelevanceThreshold float64
	WebSearchBonus        float64
	MinKeywordHits        int
	ContextMinFragments   int
	ContextMaxFragments   int
	MaxGenerateAttempts   int
	ExpansionMinRunes     int
	DefaultLocale         string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		Blob: BlobConfig{
			GatewayURL: getEnv("BLOB_GATEWAY_URL", "http://blob-gateway:9000"),
			Timeout:    getEnvInt("BLOB_TIMEOUT", 15),
		},
		Redis: RedisConfig{
			Enabled:    getEnvBool("CHUNK_CACHE_ENABLED", false),
			Addr:       getEnv("CHUNK_CACHE_ADDR", "chunk-cache:6379"),
			Password:   getSecret("CHUNK_CACHE_PASSWORD", "CHUNK_CACHE_PASSWORD_FILE", ""),
			DB:         getEnvInt("CHUNK_CACHE_DB", 0),
			TTLMinutes: getEnvInt("CHUNK_CACHE_TTL_MINUTES", 30),
		},
		WebSearch: WebSearchConfig{
			APIKey:            getSecret("WEB_SEARCH_API_KEY", "WEB_SEARCH_API_KEY_FILE", ""),
			BaseURL:           getEnv("WEB_SEARCH_URL", "https://api.tavily.com"),
			Timeout:           getEnvInt("WEB_SEARCH_TIMEOUT", 20),
			MaxResults:        getEnvInt("WEB_SEARCH_MAX_RESULTS", 5),
			SearchDepth:       getEnv("WEB_SEARCH_DEPTH", "basic"),
			ExcludedDomains:   getEnvList("WEB_SEARCH_EXCLUDED_DOMAINS", "twitter.com,x.com,facebook.com,instagram.com,tiktok.com,youtube.com,reddit.com"),
			RequestsPerSecond: getEnvFloat("WEB_SEARCH_RPS", 1.0),
		},
		LLM: LLMConfig{
			URL:               getEnv("INFERENCE_URL", ""),
			Model:             getEnv("INFERENCE_MODEL", ""),
			AuxModel:          getEnv("INFERENCE_AUX_MODEL", ""),
			Timeout:           getEnvInt("INFERENCE_TIMEOUT", 120),
			MaxOutputTokens:   getEnvInt("INFERENCE_MAX_OUTPUT_TOKENS", 2048),
			RequestsPerSecond: getEnvFloat("INFERENCE_RPS", 2.0),
		},
		Cache: CacheConfig{
			Size:       getEnvInt("ANSWER_CACHE_SIZE", 128),
			TTLMinutes: getEnvInt("ANSWER_CACHE_TTL_MINUTES", 10),
		},
		SmallPoolThreshold:    getEnvInt("RAG_SMALL_POOL_THRESHOLD", 15),
		PrefilterLimit:        getEnvInt("RAG_PREFILTER_LIMIT", 40),
		MinRerankScore:        getEnvFloat("RAG_MIN_RERANK_SCORE", 3.0),
		RecoveryTopN:          getEnvInt("RAG_RECOVERY_TOP_N", 20),
		LowRelevanceThreshold: getEnvFloat("RAG_LOW_RELEVANCE_THRESHOLD", 5.0),
		WebSearchBonus:        getEnvFloat("RAG_WEB_SEARCH_BONUS", 10.0),
		MinKeywordHits:        getEnvInt("RAG_MIN_KEYWORD_HITS", 3),
		ContextMinFragments:   getEnvInt("RAG_CONTEXT_MIN_FRAGMENTS", 5),
		ContextMaxFragments:   getEnvInt("RAG_CONTEXT_MAX_FRAGMENTS", 10),
		MaxGenerateAttempts:   getEnvInt("RAG_MAX_GENERATE_ATTEMPTS", 3),
		ExpansionMinRunes:     getEnvInt("RAG_EXPANSION_MIN_RUNES", 8),
		DefaultLocale:         getEnv("RAG_DEFAULT_LOCALE", "ja"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
