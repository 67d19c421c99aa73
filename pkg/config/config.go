// Package config provides configuration loading and validation for maestro.
//
// Configuration is an explicitly constructed, immutable value: Load() builds a
// Config from the environment once at startup and the result is passed by
// value to every component at construction time. There is no global singleton
// and no mutation after load; tests build Config literals directly.
//
// All keys are optional. Invalid or out-of-range values fall back to the
// documented default rather than failing startup, with a warning logged, so a
// misconfigured deployment degrades instead of refusing to boot.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"maestro/pkg/logx"
	"maestro/pkg/proto"
)

// Environment variable names.
const (
	EnvSoulFlowEnabled     = "MAESTRO_SOUL_FLOW_ENABLED"
	EnvGracefulFallback    = "MAESTRO_GRACEFUL_FALLBACK"
	EnvMaxQuestions        = "MAESTRO_MAX_QUESTIONS"
	EnvMinConfidence       = "MAESTRO_MIN_CONFIDENCE"
	EnvExtractionTimeout   = "MAESTRO_EXTRACTION_TIMEOUT_SECONDS"
	EnvMinGapSeverity      = "MAESTRO_MIN_GAP_SEVERITY"
	EnvBlockOnCriticalGaps = "MAESTRO_BLOCK_ON_CRITICAL_GAPS"
	EnvSoulCacheTTL        = "MAESTRO_SOUL_CACHE_TTL_SECONDS"
	EnvContentLanguage     = "MAESTRO_CONTENT_LANGUAGE"
	EnvAutoApplyDefaults   = "MAESTRO_AUTO_APPLY_DEFAULTS"
	EnvSessionTTL          = "MAESTRO_SESSION_TTL_SECONDS"
	EnvSessionSlidingTTL   = "MAESTRO_SESSION_SLIDING_TTL"
	EnvMaxSessions         = "MAESTRO_MAX_SESSIONS"
	EnvDatabasePath        = "MAESTRO_DB_PATH"
	EnvLLMProvider         = "MAESTRO_LLM_PROVIDER"
	EnvLLMModel            = "MAESTRO_LLM_MODEL"
	EnvAnthropicAPIKey     = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvGeminiAPIKey        = "GEMINI_API_KEY"
	EnvOllamaHost          = "OLLAMA_HOST"
)

// Clamp bounds for numeric settings.
const (
	MinQuestionsBound       = 1
	MaxQuestionsBound       = 50
	MinExtractionTimeoutSec = 1
	MaxExtractionTimeoutSec = 60
)

// Defaults.
const (
	DefaultMaxQuestions         = 10
	DefaultMinConfidence        = 0.6
	DefaultExtractionTimeoutSec = 10
	DefaultSoulCacheTTLSec      = 900
	DefaultContentLanguage      = "en"
	DefaultSessionTTLSec        = 1800
	DefaultMaxSessions          = 100
	DefaultDatabasePath         = "maestro.db"
	DefaultLLMProvider          = "anthropic"
)

// LLMConfig holds the settings for the extraction model boundary.
type LLMConfig struct {
	Provider        string // anthropic, openai, ollama, gemini, mock
	Model           string // provider default used when empty
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	OllamaHost      string
}

// Config is the immutable configuration for the whole system.
type Config struct {
	// Flow toggles.
	SoulFlowEnabled  bool // v2 soul-based flow vs static v1 interview
	GracefulFallback bool // fall back to v1 on extraction failure instead of failing the session

	// Interview.
	MaxQuestions      int
	AutoApplyDefaults bool

	// Decision.
	MinConfidence float64

	// Soul extraction.
	ExtractionTimeout time.Duration
	MinGapSeverity    proto.GapSeverity // lowest severity that triggers a follow-up question
	BlockOnCritical   bool
	SoulCacheTTL      time.Duration
	ContentLanguage   string

	// Sessions.
	SessionTTL        time.Duration
	SessionSlidingTTL bool // touch extends TTL instead of absolute-from-creation
	MaxSessions       int

	// Storage.
	DatabasePath string

	LLM LLMConfig
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		SoulFlowEnabled:   true,
		GracefulFallback:  true,
		MaxQuestions:      DefaultMaxQuestions,
		MinConfidence:     DefaultMinConfidence,
		ExtractionTimeout: DefaultExtractionTimeoutSec * time.Second,
		MinGapSeverity:    proto.SeverityMedium,
		BlockOnCritical:   false,
		SoulCacheTTL:      DefaultSoulCacheTTLSec * time.Second,
		ContentLanguage:   DefaultContentLanguage,
		SessionTTL:        DefaultSessionTTLSec * time.Second,
		SessionSlidingTTL: true,
		MaxSessions:       DefaultMaxSessions,
		DatabasePath:      DefaultDatabasePath,
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
		},
	}
}

// Load builds a Config from the process environment, applying defaults and
// clamping out-of-range values.
func Load() Config {
	return loadFrom(os.LookupEnv)
}

// loadFrom is the testable core of Load.
func loadFrom(lookup func(string) (string, bool)) Config {
	logger := logx.NewLogger("config")
	cfg := Default()

	cfg.SoulFlowEnabled = boolOr(lookup, EnvSoulFlowEnabled, cfg.SoulFlowEnabled)
	cfg.GracefulFallback = boolOr(lookup, EnvGracefulFallback, cfg.GracefulFallback)
	cfg.AutoApplyDefaults = boolOr(lookup, EnvAutoApplyDefaults, cfg.AutoApplyDefaults)
	cfg.BlockOnCritical = boolOr(lookup, EnvBlockOnCriticalGaps, cfg.BlockOnCritical)
	cfg.SessionSlidingTTL = boolOr(lookup, EnvSessionSlidingTTL, cfg.SessionSlidingTTL)

	cfg.MaxQuestions = clampInt(logger, lookup, EnvMaxQuestions,
		cfg.MaxQuestions, MinQuestionsBound, MaxQuestionsBound)

	if raw, ok := lookup(EnvMinConfidence); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v < 0.0 || v > 1.0 {
			logger.Warn("invalid %s=%q, using default %.2f", EnvMinConfidence, raw, DefaultMinConfidence)
			cfg.MinConfidence = DefaultMinConfidence
		} else {
			cfg.MinConfidence = v
		}
	}

	timeoutSec := clampInt(logger, lookup, EnvExtractionTimeout,
		DefaultExtractionTimeoutSec, MinExtractionTimeoutSec, MaxExtractionTimeoutSec)
	cfg.ExtractionTimeout = time.Duration(timeoutSec) * time.Second

	if raw, ok := lookup(EnvMinGapSeverity); ok {
		sev, valid := proto.ParseGapSeverity(strings.ToLower(strings.TrimSpace(raw)))
		if !valid {
			logger.Warn("invalid %s=%q, using default %s", EnvMinGapSeverity, raw, proto.SeverityMedium)
			sev = proto.SeverityMedium
		}
		cfg.MinGapSeverity = sev
	}

	if sec := intOr(lookup, EnvSoulCacheTTL, DefaultSoulCacheTTLSec); sec > 0 {
		cfg.SoulCacheTTL = time.Duration(sec) * time.Second
	}
	if sec := intOr(lookup, EnvSessionTTL, DefaultSessionTTLSec); sec > 0 {
		cfg.SessionTTL = time.Duration(sec) * time.Second
	}
	if n := intOr(lookup, EnvMaxSessions, DefaultMaxSessions); n > 0 {
		cfg.MaxSessions = n
	}

	cfg.ContentLanguage = stringOr(lookup, EnvContentLanguage, cfg.ContentLanguage)
	cfg.DatabasePath = stringOr(lookup, EnvDatabasePath, cfg.DatabasePath)

	cfg.LLM.Provider = strings.ToLower(stringOr(lookup, EnvLLMProvider, cfg.LLM.Provider))
	cfg.LLM.Model = stringOr(lookup, EnvLLMModel, "")
	cfg.LLM.AnthropicAPIKey = stringOr(lookup, EnvAnthropicAPIKey, "")
	cfg.LLM.OpenAIAPIKey = stringOr(lookup, EnvOpenAIAPIKey, "")
	cfg.LLM.GeminiAPIKey = stringOr(lookup, EnvGeminiAPIKey, "")
	cfg.LLM.OllamaHost = stringOr(lookup, EnvOllamaHost, "http://localhost:11434")

	return cfg
}

func boolOr(lookup func(string) (string, bool), key string, fallback bool) bool {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func intOr(lookup func(string) (string, bool), key string, fallback int) int {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func stringOr(lookup func(string) (string, bool), key, fallback string) string {
	if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
		return strings.TrimSpace(raw)
	}
	return fallback
}

func clampInt(logger *logx.Logger, lookup func(string) (string, bool), key string, fallback, min, max int) int {
	v := intOr(lookup, key, fallback)
	if v < min {
		logger.Warn("%s=%d below minimum, clamping to %d", key, v, min)
		return min
	}
	if v > max {
		logger.Warn("%s=%d above maximum, clamping to %d", key, v, max)
		return max
	}
	return v
}
