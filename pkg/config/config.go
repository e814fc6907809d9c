// Package config loads citycast settings from the environment, after
// merging an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Vector index backends.
const (
	BackendQdrant = "qdrant"
	BackendBolt   = "bolt"
)

var ErrInvalidBackend = errors.New("config: invalid vector backend")

// Config holds all environment-based configuration.
type Config struct {
	// Weather provider
	WeatherURL string

	// Vector index
	Backend          string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	BoltPath         string
	EmbedDims        int

	// Ollama embeddings
	OllamaURL   string
	EmbedModel  string
	OllamaToken string

	// API / messaging
	NATSURL    string
	Port       string
	CORSOrigin string

	LogLevel string
}

// Load reads a .env file if present, then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		WeatherURL: envOr("WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),

		Backend:          strings.ToLower(envOr("VECTOR_BACKEND", BackendQdrant)),
		QdrantURL:        envOr("QDRANT_URL", "localhost:6334"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "city-weather-data"),
		BoltPath:         envOr("BOLT_PATH", "citycast.db"),
		EmbedDims:        envOrInt("EMBED_DIMS", 384),

		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "all-minilm"),
		OllamaToken: os.Getenv("OLLAMA_TOKEN"),

		NATSURL:    os.Getenv("NATS_URL"),
		Port:       envOr("PORT", "8080"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendQdrant, BackendBolt:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}
	if c.EmbedDims <= 0 {
		return fmt.Errorf("config: EMBED_DIMS must be positive, got %d", c.EmbedDims)
	}
	if c.WeatherURL == "" {
		return errors.New("config: WEATHER_URL is empty")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
