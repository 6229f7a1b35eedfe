package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"audit-analytics/internal/backend"
	"audit-analytics/internal/stats"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Backend             backend.Config
	DataPath            string
	LogDir              string
	CacheDir            string
	DefaultHotelID      string
	FailureTopN         int
	PairTopN            int
	EnableMermaidCharts bool
	Location            *time.Location

	// DefaultPeriod applies when a command or tool call names no period.
	DefaultPeriod stats.Period
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. The binary's directory wins: MCP clients start the server from anywhere.
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Working directory, for development runs.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir)
}

// FromEnv builds the configuration from the current environment. exeDir is the
// fallback data directory when DATA_PATH is unset.
func FromEnv(exeDir string) (*AppConfig, error) {
	dataPath := DataPath(exeDir)
	logDir := LogDir(exeDir)
	cacheDir := getEnv("CACHE_DIR", filepath.Join(dataPath, "cache"))

	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg := &AppConfig{
		Backend: backend.Config{
			BaseURL:     getEnv("BACKEND_URL", ""),
			APIKey:      getEnv("BACKEND_API_KEY", ""),
			Timeout:     time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		DataPath:            dataPath,
		LogDir:              logDir,
		CacheDir:            cacheDir,
		DefaultHotelID:      getEnv("DEFAULT_HOTEL_ID", ""),
		FailureTopN:         getEnvInt("FAILURE_TOP_N", 30),
		PairTopN:            getEnvInt("PAIR_TOP_N", 25),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
		DefaultPeriod:       getEnvPeriod("DEFAULT_PERIOD", stats.DefaultAreaPeriod),
		Location:            loc,
	}

	return cfg, nil
}

// DataPath resolves the data directory: DATA_PATH, else exeDir, else the working directory.
func DataPath(exeDir string) string {
	if dataPath := os.Getenv("DATA_PATH"); dataPath != "" {
		return dataPath
	}
	if exeDir != "" {
		return exeDir
	}
	return "."
}

// LogDir resolves the log directory: LOGS_FOLDER, else logs/ under DataPath.
// Logging is initialised before Load, so both sides call this.
func LogDir(exeDir string) string {
	return getEnv("LOGS_FOLDER", filepath.Join(DataPath(exeDir), "logs"))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Int("fallback", fallback).Msg("Ignoring invalid integer setting")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvPeriod reads a default period. A bad value is logged and replaced by
// fallback rather than failing every command that relies on the default.
func getEnvPeriod(key string, fallback stats.Period) stats.Period {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	p := stats.ParsePeriodOr(value, "")
	if p == "" || p == stats.PeriodCustom {
		log.Warn().Str("key", key).Str("value", value).Str("fallback", string(fallback)).Msg("Ignoring invalid period setting")
		return fallback
	}
	return p
}
