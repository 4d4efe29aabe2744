package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	PostgresDSN string

	// Cache
	RedisAddr string

	// Identity
	JWTSecret string

	// Providers
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	GroqAPIKey      string

	// Provider call timeout; the gateway treats anything slower as an
	// upstream failure.
	ProviderTimeout time.Duration // default: 30s

	// Request validation bounds
	MaxMessages       int // default: 50
	MaxMessageContent int // default: 8000

	// Rate limiting: per-operation requests per rolling window.
	RateLimitWindow time.Duration // default: 60s
	RateLimits      map[string]RateLimit

	// CORS
	AllowedOrigins []string // default: "*"

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
	LogFormat            string // "text" or "json"
}

// RateLimit is the (base, burst) pair for one operation. Base bounds how
// many requests are admitted per window; Burst bounds how many timestamps
// the quota store retains for the key.
type RateLimit struct {
	Limit int
	Burst int
}

const DefaultOperation = "default"

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:           os.Getenv("GROQ_API_KEY"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}

	var err error
	cfg.ProviderTimeout, err = getDuration("PROVIDER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessages, err = getInt("MAX_MESSAGES", 50)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageContent, err = getInt("MAX_MESSAGE_CONTENT", 8000)
	if err != nil {
		return nil, err
	}

	cfg.RateLimits, err = loadRateLimits()
	if err != nil {
		return nil, err
	}

	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// loadRateLimits builds the per-operation table. Each operation accepts
// RATE_LIMIT_<OP> and RATE_LIMIT_<OP>_BURST overrides; burst defaults to
// twice the base limit.
func loadRateLimits() (map[string]RateLimit, error) {
	defaults := map[string]int{
		"ai":             10,
		"auth":           5,
		"goals":          20,
		DefaultOperation: 30,
	}

	limits := make(map[string]RateLimit, len(defaults))
	for op, base := range defaults {
		envOp := strings.ToUpper(op)
		limit, err := getInt("RATE_LIMIT_"+envOp, base)
		if err != nil {
			return nil, err
		}
		burst, err := getInt("RATE_LIMIT_"+envOp+"_BURST", limit*2)
		if err != nil {
			return nil, err
		}
		if limit <= 0 || burst < limit {
			return nil, fmt.Errorf("invalid rate limit for operation %q: limit=%d burst=%d", op, limit, burst)
		}
		limits[op] = RateLimit{Limit: limit, Burst: burst}
	}
	return limits, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
