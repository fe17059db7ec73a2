package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by AXIOM_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("AXIOM_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// StoreDriver returns the backing store for beliefs, conflicts and journal events.
// Defaults to "sqlite" if not set.
// Valid values: memory, sqlite, postgres
func StoreDriver() string {
	d := strings.ToLower(os.Getenv("STORE_DRIVER"))
	if d == "" {
		return "sqlite"
	}
	return d
}

// SQLitePath returns the database file used by the sqlite driver.
func SQLitePath() string {
	p := os.Getenv("SQLITE_PATH")
	if p == "" {
		return "data/axiom.db"
	}
	return p
}

// StoreDSN returns the DSN for the configured driver.
func StoreDSN() string {
	if StoreDriver() == "postgres" {
		return DatabaseURL()
	}
	return SQLitePath()
}

// APIToken is the bearer token guarding /v1. Empty disables auth.
func APIToken() string {
	return os.Getenv("AXIOM_API_TOKEN")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// ContradictionTagging enables mutual contradicted_with links between beliefs.
// Defaults to true.
func ContradictionTagging() bool {
	return boolEnv("AXIOM_CONTRADICTION_TAGGING", true)
}

// BacklogWarning is the pending-conflict count above which a safety warning fires.
func BacklogWarning() int {
	n, err := strconv.Atoi(os.Getenv("AXIOM_CONTRADICTION_BACKLOG_WARNING"))
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

// StalenessDays is the age after which a pending conflict counts as stale.
func StalenessDays() int {
	n, err := strconv.Atoi(os.Getenv("AXIOM_CONTRADICTION_STALENESS_DAYS"))
	if err != nil || n <= 0 {
		return 7
	}
	return n
}

// GraphExportPath is where the server writes the contradiction graph.
func GraphExportPath() string {
	p := os.Getenv("AXIOM_GRAPH_EXPORT_PATH")
	if p == "" {
		return "data/contradiction_graph.json"
	}
	return p
}

// BootSweepEnabled toggles the startup contradiction sweep.
func BootSweepEnabled() bool {
	return boolEnv("AXIOM_BOOT_SWEEP", true)
}

// BootSweepFastMode skips metrics, dream probe, safety and nag during the sweep.
func BootSweepFastMode() bool {
	return boolEnv("AXIOM_BOOT_SWEEP_FAST", false)
}

// MonitorInterval is the cadence of the periodic retest worker.
// Defaults to 1h if not set.
func MonitorInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("AXIOM_MONITOR_INTERVAL"))
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func boolEnv(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
