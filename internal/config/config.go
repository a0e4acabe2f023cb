package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Vector store backend names, selected once at process start.
const (
	BackendMemory   = "memory"
	BackendHNSW     = "hnsw"
	BackendPostgres = "postgres"
)

type Config struct {
	Database DatabaseConfig
	Vector   VectorConfig
	Detector DetectorConfig
	Recall   RecallConfig
	Matching MatchingConfig
	Uploads  UploadsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type VectorConfig struct {
	Backend   string // memory, hnsw, or postgres (default memory)
	IndexPath string // Path to persist the HNSW index (optional)
}

type DetectorConfig struct {
	URL            string // Face detection service base URL
	TimeoutSeconds int    // Request timeout (default 30)
}

type RecallConfig struct {
	APIKey string
	URL    string // defaults to https://us-west-2.recall.ai/api/v1
}

type UploadsConfig struct {
	Dir string // Directory for registration photos (default ./uploads)
}

// MatchingConfig carries the attendance thresholds. Defaults come from the
// embedded defaults.yaml and can be overridden per environment.
type MatchingConfig struct {
	MatchThreshold       float64 `yaml:"match_threshold"`
	PresenceThreshold    float64 `yaml:"presence_threshold"`
	PingIntervalMinutes  int     `yaml:"ping_interval_minutes"`
	RejectClosedSessions bool    `yaml:"-"`
}

type defaultsFile struct {
	Matching MatchingConfig `yaml:"matching"`
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

// envFloat reads an environment variable and parses it as a float in (0, 1].
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean, defaulting on absence
// or parse failure.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// The file is embedded, so this can only be a build-time mistake.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Vector: VectorConfig{
			Backend:   envString("VECTOR_BACKEND", BackendMemory),
			IndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Detector: DetectorConfig{
			URL:            os.Getenv("DETECTOR_URL"),
			TimeoutSeconds: envInt("DETECTOR_TIMEOUT_SECONDS", 30),
		},
		Recall: RecallConfig{
			APIKey: os.Getenv("RECALL_API_KEY"),
			URL:    envString("RECALL_API_URL", "https://us-west-2.recall.ai/api/v1"),
		},
		Matching: MatchingConfig{
			MatchThreshold:       envFloat("MATCH_THRESHOLD", defaults.Matching.MatchThreshold),
			PresenceThreshold:    envFloat("PRESENCE_THRESHOLD", defaults.Matching.PresenceThreshold),
			PingIntervalMinutes:  envInt("PING_INTERVAL_MINUTES", defaults.Matching.PingIntervalMinutes),
			RejectClosedSessions: envBool("REJECT_CLOSED_SESSIONS", false),
		},
		Uploads: UploadsConfig{
			Dir: envString("UPLOAD_DIR", "./uploads"),
		},
	}
}
