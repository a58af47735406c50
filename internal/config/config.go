package config

import (
	"os"
	"strconv"
	"time"
)

// MismatchPolicy controls what happens when a caller resumes an existing
// session with a patient id that differs from the one bound at creation.
type MismatchPolicy string

const (
	// MismatchIgnore keeps the session's bound patient and ignores the
	// caller-supplied id, matching the historical behaviour.
	MismatchIgnore MismatchPolicy = "ignore"
	// MismatchReject fails the call before any state is touched.
	MismatchReject MismatchPolicy = "reject"
)

// Config holds all runtime settings. Everything comes from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	OpenAIAPIKey string
	ChatModel    string
	SummaryModel string
	EmbedModel   string
	LLMTimeout   time.Duration

	SessionBackend string // "memory" or "redis"
	RedisAddr      string
	MismatchPolicy MismatchPolicy
	VectorTopK     int
	LogLevel       string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load reads the environment and builds the config.
func Load() *Config {
	policy := MismatchIgnore
	if getEnv("SESSION_PATIENT_MISMATCH", "ignore") == "reject" {
		policy = MismatchReject
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		ChatModel:    getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		SummaryModel: getEnv("OPENAI_MODEL_SUMMARY", ""),
		EmbedModel:   getEnv("OPENAI_MODEL_EMBED", "text-embedding-3-small"),
		LLMTimeout:   getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		MismatchPolicy: policy,
		VectorTopK:     getIntEnv("VECTOR_TOP_K", 5),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}
