// Package config handles tracker configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvFileVar names the variable that points at an optional .env file.
const EnvFileVar = "TRACKER_ENV_FILE"

type Config struct {
	HTTPAddr string

	StoreDriver string // duckdb or postgres
	StoreDSN    string

	SpeciesFile string
	StateFile   string
	ExportDir   string
	DebugDir    string
	DebugMode   int

	OCRBackend  string // tesseract or remote
	OCRAddr     string
	OCRLanguage string

	WindowTitle    string
	CaptureDisplay int
	FrameDedup     bool

	PacingDelay     time.Duration
	MaxScanAttempts int
	MatchCutoff     float64

	StoreMaxAttempts int
	StoreRetryDelay  time.Duration

	RedisURL   string
	ShinyAlert bool
}

// Load reads the optional .env file, then the environment.
// Variables already set in the environment win over the file.
func Load() *Config {
	loadEnvFile(getEnv(EnvFileVar, ".env"))

	return &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8000"),
		StoreDriver:      getEnv("STORE_DRIVER", "duckdb"),
		StoreDSN:         getEnv("STORE_DSN", "data/encounters.duckdb"),
		SpeciesFile:      getEnv("SPECIES_FILE", "config/monster_names.json"),
		StateFile:        getEnv("STATE_FILE", "config/init.json"),
		ExportDir:        getEnv("EXPORT_DIR", "data_exports"),
		DebugDir:         getEnv("DEBUG_DIR", "DEBUG"),
		DebugMode:        getEnvInt("DEBUG_MODE", 0),
		OCRBackend:       getEnv("OCR_BACKEND", "tesseract"),
		OCRAddr:          getEnv("OCR_ADDR", "localhost:50051"),
		OCRLanguage:      getEnv("OCR_LANGUAGE", "eng"),
		WindowTitle:      getEnv("WINDOW_TITLE", "pokemmo"),
		CaptureDisplay:   getEnvInt("CAPTURE_DISPLAY", 0),
		FrameDedup:       getEnvBool("FRAME_DEDUP", true),
		PacingDelay:      getEnvSeconds("PACING_SECONDS", 1.0),
		MaxScanAttempts:  getEnvInt("MAX_SCAN_ATTEMPTS", 3),
		MatchCutoff:      getEnvFloat("MATCH_CUTOFF", 0.8),
		StoreMaxAttempts: getEnvInt("STORE_MAX_ATTEMPTS", 3),
		StoreRetryDelay:  getEnvSeconds("STORE_RETRY_SECONDS", 1.0),
		RedisURL:         getEnv("REDIS_URL", ""),
		ShinyAlert:       getEnvBool("SHINY_ALERT", false),
	}
}

func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("failed to load env file", "path", path, "error", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := strings.ToLower(os.Getenv(key)); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// getEnvSeconds reads fractional seconds.
func getEnvSeconds(key string, def float64) time.Duration {
	return time.Duration(getEnvFloat(key, def) * float64(time.Second))
}
