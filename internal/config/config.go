package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Operation selection
	Scan   bool
	Verify bool
	Serve  bool

	// Stores
	DBPath       string
	CacheBackend string // memory | sqlite | redis
	CachePath    string
	RedisAddr    string
	RedisDB      int
	TaxonomyPath string

	// Engine tuning
	ConfidenceThreshold float64
	VerifyWorkers       int
	EvidenceCap         int
	SSHTimeoutSec       int
	TelnetTimeoutSec    int

	// Scan parameters
	ScanPlatform string
	ScanVersion  string
	ScanHardware string
	ScanLabels   []string

	// Verify parameters
	AdvisoryPath string
	TargetHost   string
	TargetPort   int
	Transport    string
	Username     string
	Password     string
	Demo         bool

	// Ops surface
	DiagAddr string
	LogLevel string
	LogFile  string
}

// Load parses command line flags and environment variables to populate
// Config. Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.DBPath = getEnv("NETPOSTURE_DB", getDefaultDBPath())
	cfg.CacheBackend = getEnv("NETPOSTURE_CACHE", "memory")
	cfg.CachePath = getEnv("NETPOSTURE_CACHE_PATH", "netposture_cache.db")
	cfg.RedisAddr = getEnv("NETPOSTURE_REDIS_ADDR", "localhost:6379")
	cfg.RedisDB = getEnvInt("NETPOSTURE_REDIS_DB", 0)
	cfg.TaxonomyPath = getEnv("NETPOSTURE_TAXONOMY", "./configs/taxonomy.json")
	cfg.ConfidenceThreshold = getEnvFloat("NETPOSTURE_CONFIDENCE", 0.75)
	cfg.VerifyWorkers = getEnvInt("NETPOSTURE_WORKERS", 4)
	cfg.DiagAddr = getEnv("NETPOSTURE_DIAG_ADDR", ":8080")
	cfg.LogLevel = getEnv("NETPOSTURE_LOG_LEVEL", "info")
	cfg.LogFile = getEnv("NETPOSTURE_LOG_FILE", "")
	labelStr := getEnv("NETPOSTURE_LABELS", "")

	// Command Line Flags (Override Env)
	flag.BoolVar(&cfg.Scan, "scan", false, "Run a bulk vulnerability scan and print the result as JSON")
	flag.BoolVar(&cfg.Verify, "verify", false, "Verify one advisory against a live device and print the result as JSON")
	flag.BoolVar(&cfg.Serve, "serve", false, "Keep the diagnostics server running")

	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the vulnerability SQLite database")
	flag.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "Advisory cache backend: memory, sqlite or redis")
	flag.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "Path to the SQLite cache database")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the redis cache backend")
	flag.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	flag.StringVar(&cfg.TaxonomyPath, "taxonomy", cfg.TaxonomyPath, "Path to the taxonomy JSON catalog")

	flag.Float64Var(&cfg.ConfidenceThreshold, "confidence", cfg.ConfidenceThreshold, "Minimum confidence for caching classification results")
	flag.IntVar(&cfg.VerifyWorkers, "workers", cfg.VerifyWorkers, "Concurrent device verifications")
	flag.IntVar(&cfg.EvidenceCap, "evidence-cap", 3, "Maximum show commands collected as evidence")
	flag.IntVar(&cfg.SSHTimeoutSec, "ssh-timeout", 30, "SSH connect/command timeout in seconds")
	flag.IntVar(&cfg.TelnetTimeoutSec, "telnet-timeout", 30, "Telnet connect/command timeout in seconds")

	flag.StringVar(&cfg.ScanPlatform, "platform", "", "Device platform (IOS-XE, IOS-XR, ASA, FTD, NX-OS)")
	flag.StringVar(&cfg.ScanVersion, "version", "", "Device software version")
	flag.StringVar(&cfg.ScanHardware, "hardware", "", "Device hardware model (optional scan filter)")
	flag.StringVar(&labelStr, "labels", labelStr, "Device feature labels, comma separated (optional scan filter)")

	flag.StringVar(&cfg.AdvisoryPath, "advisory", "", "Path to the PSIRT advisory JSON for -verify")
	flag.StringVar(&cfg.TargetHost, "host", "", "Device host for -verify")
	flag.IntVar(&cfg.TargetPort, "port", 0, "Device port (0 = transport default)")
	flag.StringVar(&cfg.Transport, "transport", "ssh", "Device transport: ssh, telnet or replay")
	flag.StringVar(&cfg.Username, "user", "", "Device username")
	flag.StringVar(&cfg.Password, "pass", "", "Device password")
	flag.BoolVar(&cfg.Demo, "demo", false, "Use the built-in replay device instead of a live one")

	flag.StringVar(&cfg.DiagAddr, "diag-addr", cfg.DiagAddr, "Diagnostics server address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path (empty logs to stdout)")

	flag.Parse()

	cfg.ScanLabels = parseLabels(labelStr)

	return cfg
}

func parseLabels(s string) []string {
	if s == "" {
		return nil
	}
	var labels []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in the user's home
// directory, creating the directory if needed.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "netposture.db"
	}

	dir := filepath.Join(home, ".netposture")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .netposture directory, using current dir: %v", err)
		return "netposture.db"
	}

	return filepath.Join(dir, "netposture.db")
}
