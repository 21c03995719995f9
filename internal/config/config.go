package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	Detector DetectorConfig
	Camera   CameraConfig
	Match    MatchConfig
	Models   ModelsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LedgerConfig struct {
	MySQLDSN   string // optional MariaDB/MySQL DSN for the attendance sink; empty = use PostgreSQL
	DateFormat string // date key layout (default 2006-01-02)
}

type DetectorConfig struct {
	URL string // face embedding server, defaults to http://localhost:8000
	Dim int    // embedding dimension, defaults to the model preset
}

type CameraConfig struct {
	URL string // snapshot URL for stream mode (one image per GET)
}

type MatchConfig struct {
	Model              string  // embedding model name, defaults to arcface
	Threshold          float64 // resolved from the model preset unless MATCH_THRESHOLD is set
	MinEmbeddingLength int     // sanity floor for stored embeddings (default 16)
}

type ModelsConfig struct {
	Models map[string]ModelPreset `yaml:"models"`
}

type ModelPreset struct {
	Threshold float64 `yaml:"threshold"`
	Dim       int     `yaml:"dim"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// Embedded file, cannot fail in practice.
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	model := envString("FACE_MODEL", "arcface")
	preset, ok := models.Models[model]
	if !ok {
		// Unknown model name must not collapse the threshold to zero.
		preset = models.Models["arcface"]
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Ledger: LedgerConfig{
			MySQLDSN:   os.Getenv("LEDGER_MYSQL_DSN"),
			DateFormat: envString("LEDGER_DATE_FORMAT", "2006-01-02"),
		},
		Detector: DetectorConfig{
			URL: os.Getenv("DETECTOR_URL"),
			Dim: envInt("EMBEDDING_DIM", preset.Dim),
		},
		Camera: CameraConfig{
			URL: os.Getenv("CAMERA_URL"),
		},
		Match: MatchConfig{
			Model:              model,
			Threshold:          envFloat("MATCH_THRESHOLD", preset.Threshold),
			MinEmbeddingLength: envInt("MIN_EMBEDDING_LENGTH", 16),
		},
		Models: models,
	}
}

// ModelPreset returns the preset for a model name, zero-valued when unknown.
func (c *Config) ModelPreset(name string) ModelPreset {
	return c.Models.Models[name]
}
