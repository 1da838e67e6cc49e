package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// Similarity settings
	SimilarityThreshold float64
	SimilarityBackend   string // "embedding", "lexical"
	ScoringFallback     bool   // degrade to lexical when embeddings are down
	EmbeddingURL        string
	EmbeddingTimeout    time.Duration

	// Event publishing
	KafkaBrokers []string
}

// LoadConfig reads configuration from the environment, with .env support
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set variables directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SimilarityBackend: getEnv("SIMILARITY_BACKEND", "lexical"),
		EmbeddingURL:      os.Getenv("EMBEDDING_URL"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	threshold, err := strconv.ParseFloat(getEnv("SIMILARITY_THRESHOLD", "0.85"), 64)
	if err != nil || threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	cfg.SimilarityThreshold = threshold

	fallback, err := strconv.ParseBool(getEnv("SCORING_FALLBACK", "true"))
	if err != nil {
		return nil, fmt.Errorf("SCORING_FALLBACK must be a boolean")
	}
	cfg.ScoringFallback = fallback

	timeout, err := time.ParseDuration(getEnv("EMBEDDING_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_TIMEOUT must be a duration")
	}
	cfg.EmbeddingTimeout = timeout

	if cfg.SimilarityBackend == "embedding" && cfg.EmbeddingURL == "" {
		return nil, fmt.Errorf("EMBEDDING_URL is required when SIMILARITY_BACKEND is embedding")
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
