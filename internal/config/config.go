package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     int
	LogLevel string
	APIKey   string

	LLMAPIKey       string
	LLMBaseURL      string
	ModelDetection  string
	ModelGeneration string
	ModelExtraction string
	ModelDecision   string
	AnthropicAPIKey string
	AnthropicModel  string
	OracleTimeout   time.Duration

	ReportURL     string
	ReportTimeout time.Duration

	SessionBackend string
	SessionTTL     time.Duration
	RedisURL       string
	DatabaseURL    string

	NatsURL       string
	NatsToken     string
	SlackBotToken string
	SlackChannel  string

	MaxTurns        int
	DefaultLanguage string
}

func Load() Config {
	return Config{
		Port:     envInt("DECOY_PORT", 8000),
		LogLevel: envStr("LOG_LEVEL", "info"),
		APIKey:   envStr("API_KEY", ""),

		LLMAPIKey:       envStr("LLM_API_KEY", envStr("GROQ_API_KEY", "")),
		LLMBaseURL:      envStr("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		ModelDetection:  envStr("MODEL_DETECTION", "llama-3.3-70b-versatile"),
		ModelGeneration: envStr("MODEL_GENERATION", "llama-3.3-70b-versatile"),
		ModelExtraction: envStr("MODEL_EXTRACTION", "llama-3.1-8b-instant"),
		ModelDecision:   envStr("MODEL_DECISION", "mixtral-8x7b-32768"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		OracleTimeout:   envDuration("ORACLE_TIMEOUT", 20*time.Second),

		ReportURL:     envStr("REPORT_URL", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"),
		ReportTimeout: envDuration("REPORT_TIMEOUT", 10*time.Second),

		SessionBackend: envStr("SESSION_BACKEND", "memory"),
		SessionTTL:     envDuration("SESSION_TTL", 24*time.Hour),
		RedisURL:       envStr("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:    envStr("DATABASE_URL", ""),

		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHANNEL", ""),

		MaxTurns:        envInt("MAX_TURNS", 20),
		DefaultLanguage: envStr("DEFAULT_LANGUAGE", "en"),
	}
}

// OracleConfigured reports whether at least one completion backend has credentials.
func (c Config) OracleConfigured() bool {
	return c.LLMAPIKey != "" || c.AnthropicAPIKey != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("15s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
