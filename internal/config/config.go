// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hunterwarburton/tokenscope/internal/dnsinfo"
	"github.com/hunterwarburton/tokenscope/internal/logger"
	"github.com/hunterwarburton/tokenscope/internal/offchain"
	"github.com/hunterwarburton/tokenscope/internal/solana"
)

// Config represents the application configuration.
type Config struct {
	RPCURL          string
	HTTPTimeout     time.Duration
	ResolvConf      string
	LogLevel        string
	OnChainFallback bool

	// Bot only.
	TelegramToken  string
	AdminUserIDs   string
	AllowedUserIDs string
	MetricsAddr    string
}

// Load reads .env files (if present) into the environment and builds a
// Config from it. Variables already set in the environment win.
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		logger.Debug("No .env file loaded: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() *Config {
	return &Config{
		RPCURL:          getEnvWithDefault("SOLANA_RPC_URL", solana.DefaultMainnetEndpoint),
		HTTPTimeout:     getDurationWithDefault("HTTP_TIMEOUT", offchain.DefaultTimeout),
		ResolvConf:      getEnvWithDefault("RESOLV_CONF", dnsinfo.DefaultResolvConf),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "warn"),
		OnChainFallback: getBoolWithDefault("ONCHAIN_FALLBACK", false),
		TelegramToken:   os.Getenv("TG_BOT_TOKEN"),
		AdminUserIDs:    os.Getenv("ADMIN_USER_IDS"),
		AllowedUserIDs:  os.Getenv("ALLOWED_USER_IDS"),
		MetricsAddr:     getEnvWithDefault("METRICS_ADDR", ":9090"),
	}
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getDurationWithDefault accepts Go durations ("45s") or whole seconds ("45").
func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := getEnvWithDefault(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	logger.Warn("Ignoring invalid %s=%q, using %v", key, value, defaultValue)
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	value := getEnvWithDefault(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("Ignoring invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}
