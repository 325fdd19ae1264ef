package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port       string
	DBConn     string
	LogLevel   string
	JWTSecret  string
	HMACSecret string
	CBRURL     string
	RedisAddr  string

	LLMAPIKey           string
	LLMAPIURL           string
	LLMModel            string
	LLMMaxTokens        int
	ExplanationTimeout  time.Duration
	ExplanationCacheTTL time.Duration

	KeyRateSchedule string
	KeyRateCacheTTL time.Duration
	CORSOrigins     []string

	// SMTPHost left empty disables email summaries
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		DBConn:     getEnv("DB_CONN", ""),
		LogLevel:   getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		HMACSecret: getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		CBRURL:     getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		RedisAddr:  getEnv("REDIS_ADDR", ""),

		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		LLMAPIURL:           getEnv("LLM_API_URL", "https://api.openai.com/v1/chat/completions"),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:        getEnvInt("LLM_MAX_TOKENS", 400),
		ExplanationTimeout:  getEnvDuration("EXPLANATION_TIMEOUT", 20*time.Second),
		ExplanationCacheTTL: getEnvDuration("EXPLANATION_CACHE_TTL", 24*time.Hour),

		KeyRateSchedule: getEnv("KEY_RATE_SCHEDULE", "@every 1h"),
		KeyRateCacheTTL: getEnvDuration("KEY_RATE_CACHE_TTL", 2*time.Hour),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "25"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "deposits@bank.local"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.ExplanationTimeout <= 0 {
		return nil, fmt.Errorf("EXPLANATION_TIMEOUT must be positive, got %s", cfg.ExplanationTimeout)
	}
	if cfg.ExplanationCacheTTL < 0 {
		return nil, fmt.Errorf("EXPLANATION_CACHE_TTL must not be negative, got %s", cfg.ExplanationCacheTTL)
	}
	if cfg.LLMMaxTokens <= 0 {
		return nil, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", cfg.LLMMaxTokens)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt falls back to defaultVal when the variable is unset or not a number
func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvDuration accepts time.ParseDuration formats like "30s" or "1h30m"
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
