// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Auth   AuthConfig
	Engine EngineConfig
	Limits LimitsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds document storage configuration.
type DataConfig struct {
	BasePath string
	Backend  string // badger or sqlite (default: badger)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins (default: *)
}

// AuthConfig holds actor token configuration.
type AuthConfig struct {
	// KeyPath is the file holding the hex PASETO v4 key (default: {data}/auth.key).
	KeyPath string
	// AccessTokenKey is filled from KeyPath by the container.
	AccessTokenKey      string
	AccessTokenDuration time.Duration
	// AdminUserIDs may run reconciliation and reindexing over the API.
	AdminUserIDs []string
}

// EngineConfig holds the resolution engine tunables.
type EngineConfig struct {
	PlaceholderItemIDs     []string
	GlobalItemPattern      string
	AllowArbitraryFallback bool
	ArbitraryFallbackLimit int
	FetchConcurrency       int
	// ReconcileInterval schedules background reconciliation; zero disables it.
	ReconcileInterval time.Duration
}

// LimitsConfig holds abuse-guard windows and the per-IP HTTP limiter.
type LimitsConfig struct {
	CommentWindow         time.Duration
	CommentMax            int
	LikeWindow            time.Duration
	LikeMax               int
	ShareWindow           time.Duration
	ShareMax              int
	HTTPRequestsPerMinute int
	HTTPBurst             int
}

// LoadConfig loads configuration from the process command line.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("showcase", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for document storage")
	backend := fs.String("backend", "", "Storage backend (badger, sqlite)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins (default: *)")

	keyPath := fs.String("auth-key-path", "", "Path to the token key file")
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")

	allowFallback := fs.String("allow-arbitrary-fallback", "", "Show arbitrary owner items when membership is empty")
	fetchConcurrency := fs.String("fetch-concurrency", "", "Parallel item lookups per view (default: 8)")
	reconcileInterval := fs.String("reconcile-interval", "", "Background reconciliation interval, 0 disables (default: 0)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
			Backend:  strings.ToLower(getConfigValue(*backend, "DATA_BACKEND", BackendBadger)),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			KeyPath:      getConfigValue(*keyPath, "AUTH_KEY_PATH", ""),
			AdminUserIDs: splitList(getConfigValue("", "ADMIN_USER_IDS", "")),
		},
		Engine: EngineConfig{
			PlaceholderItemIDs:     splitList(getConfigValue("", "PLACEHOLDER_ITEM_IDS", "item1,item2,item3")),
			GlobalItemPattern:      getConfigValue("", "GLOBAL_ITEM_PATTERN", `^item\d+$`),
			AllowArbitraryFallback: getBoolConfigValue(*allowFallback, "ALLOW_ARBITRARY_FALLBACK", false),
			ArbitraryFallbackLimit: getIntConfigValue("", "ARBITRARY_FALLBACK_LIMIT", 4),
			FetchConcurrency:       getIntConfigValue(*fetchConcurrency, "FETCH_CONCURRENCY", 8),
		},
		Limits: LimitsConfig{
			CommentMax:            getIntConfigValue("", "COMMENT_MAX", 5),
			LikeMax:               getIntConfigValue("", "LIKE_MAX", 5),
			ShareMax:              getIntConfigValue("", "SHARE_MAX", 5),
			HTTPRequestsPerMinute: getIntConfigValue("", "HTTP_REQUESTS_PER_MINUTE", 120),
			HTTPBurst:             getIntConfigValue("", "HTTP_BURST", 20),
		},
	}

	durations := []struct {
		dst  *time.Duration
		flag string
		key  string
		def  string
	}{
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Limits.CommentWindow, "", "COMMENT_WINDOW", "30s"},
		{&cfg.Limits.LikeWindow, "", "LIKE_WINDOW", "10s"},
		{&cfg.Limits.ShareWindow, "", "SHARE_WINDOW", "10s"},
		{&cfg.Engine.ReconcileInterval, *reconcileInterval, "RECONCILE_INTERVAL", "0s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.key, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.key), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}
	switch c.Data.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("invalid backend: %s (must be badger or sqlite)", c.Data.Backend)
	}

	if _, err := regexp.Compile(c.Engine.GlobalItemPattern); err != nil {
		return fmt.Errorf("invalid global item pattern: %w", err)
	}
	if c.Engine.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch concurrency must be positive, got %d", c.Engine.FetchConcurrency)
	}
	if c.Engine.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile interval must not be negative, got %s", c.Engine.ReconcileInterval)
	}
	if c.Engine.AllowArbitraryFallback && c.Engine.ArbitraryFallbackLimit <= 0 {
		return errors.New("arbitrary fallback limit must be positive when the fallback is enabled")
	}

	limits := []struct {
		name   string
		window time.Duration
		max    int
	}{
		{"comment", c.Limits.CommentWindow, c.Limits.CommentMax},
		{"like", c.Limits.LikeWindow, c.Limits.LikeMax},
		{"share", c.Limits.ShareWindow, c.Limits.ShareMax},
	}
	for _, l := range limits {
		if l.window <= 0 || l.max <= 0 {
			return fmt.Errorf("%s limit must have a positive window and max", l.name)
		}
	}
	if c.Limits.HTTPRequestsPerMinute <= 0 || c.Limits.HTTPBurst <= 0 {
		return errors.New("http rate limit must be positive")
	}

	// Auth key is loaded from KeyPath by the container.

	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPaths resolves the data directory (default ~/Showcase/data) and
// the key file that lives beside it.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "Showcase", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded

	keyPath, err := expandPath(c.Auth.KeyPath, filepath.Join(expanded, "auth.key"))
	if err != nil {
		return err
	}
	c.Auth.KeyPath = keyPath
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
