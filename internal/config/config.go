package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Database
	DatabaseURL         string
	DBMaxConnections    int
	DBConnectionTimeout time.Duration
	DBAutoMigrate       bool

	// Gemini
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string

	// Pinecone (optional, vector sync is disabled without it)
	PineconeAPIKey    string
	PineconeIndexName string
	PineconeNamespace string

	// Email (optional)
	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPass     string
	EmailFromName string

	// S3 receipt archive (optional)
	S3Bucket    string
	S3Region    string
	AWSEndpoint string // For LocalStack in development

	// Insights
	Timezone *time.Location

	// Uploads
	MaxReceiptSizeBytes int64
	MaxImportSizeBytes  int64

	// Logging
	LogLevel  string
	LogFormat string
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Port:                 getEnvInt("PORT", 8080),
		Environment:          getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout:      getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		CORSOrigins:          getEnvList("CORS_ORIGINS", []string{"http://localhost:8081", "http://localhost:19006"}),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBMaxConnections:     getEnvInt("DB_MAX_CONNECTIONS", 25),
		DBConnectionTimeout:  getEnvDuration("DB_CONNECTION_TIMEOUT", 30*time.Second),
		DBAutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		PineconeAPIKey:       getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName:    getEnv("PINECONE_INDEX_NAME", ""),
		PineconeNamespace:    getEnv("PINECONE_NAMESPACE", ""),
		EmailHost:            getEnv("EMAIL_HOST", "smtp.gmail.com"),
		EmailPort:            getEnvInt("EMAIL_PORT", 587),
		EmailUser:            getEnv("EMAIL_USER", ""),
		EmailPass:            getEnv("EMAIL_PASS", ""),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "Wallet App Insights"),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Region:             getEnv("S3_REGION", "ap-south-1"),
		AWSEndpoint:          getEnv("AWS_ENDPOINT", ""),
		MaxReceiptSizeBytes:  int64(getEnvInt("MAX_RECEIPT_SIZE_BYTES", 10*1024*1024)),
		MaxImportSizeBytes:   int64(getEnvInt("MAX_IMPORT_SIZE_BYTES", 5*1024*1024)),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.EmailUser != "" && cfg.EmailPass == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("EMAIL_PASS is required in production when EMAIL_USER is set")
	}

	return cfg, nil
}

// VectorSyncEnabled reports whether both Pinecone settings are present
func (c *Config) VectorSyncEnabled() bool {
	return c.PineconeAPIKey != "" && c.PineconeIndexName != ""
}

// EmailEnabled reports whether SMTP credentials are configured
func (c *Config) EmailEnabled() bool {
	return c.EmailUser != ""
}

// ReceiptArchiveEnabled reports whether receipts should be stored in S3
func (c *Config) ReceiptArchiveEnabled() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
