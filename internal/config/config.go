package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// LLM configuration
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	LLMMaxTokens   int
	LLMTemperature float64
	StreamTimeout  time.Duration

	// Payment gateway (hosted checkout provider)
	PaymentBaseURL       string
	PaymentAPIKey        string
	PaymentWebhookSecret string
	PaymentSuccessURL    string
	PaymentCancelURL     string

	// Document renderer service
	RendererBaseURL string
	RendererAPIKey  string

	// Attachment storage
	UploadBucket       string
	UploadMaxBytes     int64
	UploadPublicPrefix string

	// Pricing (whole currency units)
	ClaimsBasePrice  int
	ParkingBasePrice int

	// Session persistence
	SessionCacheTTL time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.4),
		StreamTimeout:  getEnvAsDuration("LLM_STREAM_TIMEOUT", 90*time.Second),

		PaymentBaseURL:       getEnv("PAYMENT_BASE_URL", ""),
		PaymentAPIKey:        getEnv("PAYMENT_API_KEY", ""),
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		PaymentSuccessURL:    getEnv("PAYMENT_SUCCESS_URL", ""),
		PaymentCancelURL:     getEnv("PAYMENT_CANCEL_URL", ""),

		RendererBaseURL: getEnv("RENDERER_BASE_URL", ""),
		RendererAPIKey:  getEnv("RENDERER_API_KEY", ""),

		UploadBucket:       getEnv("UPLOAD_BUCKET", ""),
		UploadMaxBytes:     int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
		UploadPublicPrefix: getEnv("UPLOAD_PUBLIC_PREFIX", ""),

		ClaimsBasePrice:  getEnvAsInt("CLAIMS_BASE_PRICE", 79),
		ParkingBasePrice: getEnvAsInt("PARKING_BASE_PRICE", 49),

		SessionCacheTTL: getEnvAsDuration("SESSION_CACHE_TTL", 24*time.Hour),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
