// Package config provides configuration for the coordination daemon.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the daemon configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	StoreBackend string // "sqlite" or "json"
	DatabaseURL  string
	StateDir     string

	// Registry
	WorkingCopyPath string

	// Tracker
	TrackerStatePath string
	MonitorInterval  time.Duration
	HealthInterval   time.Duration
	PersistInterval  time.Duration

	// Policy
	PolicyPath string
}

// BaseDir is the project-local state directory.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskmaster")
}

// Load loads configuration from a .env file (if present) and environment
// variables.
func Load() *Config {
	_ = godotenv.Load()

	stateDir := getEnv("STATE_DIR", BaseDir())
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 3001),
		StoreBackend:     getEnv("STORE_BACKEND", "sqlite"),
		DatabaseURL:      getEnv("DATABASE_URL", "file:"+filepath.Join(stateDir, "taskmaster.db")+"?cache=shared&mode=rwc"),
		StateDir:         stateDir,
		WorkingCopyPath:  getEnv("WORKING_COPY_PATH", filepath.Join(stateDir, "working-copy.json")),
		TrackerStatePath: getEnv("TRACKER_STATE_PATH", filepath.Join(stateDir, "servers.json")),
		MonitorInterval:  time.Duration(getEnvInt("MONITOR_INTERVAL_MS", 5000)) * time.Millisecond,
		HealthInterval:   time.Duration(getEnvInt("HEALTH_INTERVAL_MS", 30000)) * time.Millisecond,
		PersistInterval:  time.Duration(getEnvInt("PERSIST_INTERVAL_MS", 30000)) * time.Millisecond,
		PolicyPath:       getEnv("POLICY_PATH", ""),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
