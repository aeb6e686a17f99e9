package config

import (
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	// RedisURL enables the knowledge summary cache when set.
	RedisURL string

	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// StreamReplies switches conversational replies from a single
	// final_response to stream_response_chunk / stream_end events.
	StreamReplies bool

	KnowledgeBaseURL string
	MailGatewayURL   string
	MailToken        string

	AdapterTimeout time.Duration

	Debug bool
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration in %s: %v", key, err)
	}
	return d
}

// Load reads all env vars and builds the config.
func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		RedisURL: getEnv("REDIS_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		StreamReplies: getBoolEnv("STREAM_REPLIES", false),

		KnowledgeBaseURL: getEnv("KNOWLEDGE_BASE_URL", "https://en.wikipedia.org"),
		MailGatewayURL:   getEnv("MAIL_GATEWAY_URL", ""),
		MailToken:        getEnv("MAIL_TOKEN", ""),

		AdapterTimeout: getDurationEnv("ADAPTER_TIMEOUT", 30*time.Second),

		Debug: getBoolEnv("DEBUG", false),
	}

	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		cfg.AllowedOrigins = strings.Split(originsStr, ",")
	}

	return cfg
}
