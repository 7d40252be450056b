// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Quota     QuotaConfig
	Thumbnail ThumbnailConfig
	Upload    UploadConfig
	Sweeper   SweeperConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds content storage configuration.
type StorageConfig struct {
	// BasePath is the root storage directory. Blobs live under
	// {BasePath}/blobs and the metadata database under {BasePath}/db.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 60s, uploads are slow)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// QuotaConfig holds per-user storage quota configuration.
type QuotaConfig struct {
	// DefaultLimitBytes is the quota assigned to newly created users.
	DefaultLimitBytes int64
}

// ThumbnailConfig holds thumbnail generation configuration.
type ThumbnailConfig struct {
	// Workers bounds concurrent image decodes/resizes. 0 means
	// runtime.NumCPU(), resolved where the pool is created.
	Workers int
	// JPEGQuality for encoded renditions (default: 85).
	JPEGQuality int
}

// UploadConfig holds upload handling configuration.
type UploadConfig struct {
	// MaxSizeBytes rejects uploads with a larger declared size (default: 100MiB).
	MaxSizeBytes int64
	// RatePerSecond and Burst configure the per-user upload rate limiter.
	RatePerSecond float64
	Burst         int
}

// SweeperConfig holds reconciliation sweeper configuration.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	// MinBlobAge is the grace window: blobs younger than this are never
	// considered orphans, so in-flight writes are not swept.
	MinBlobAge time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	storagePath := flag.String("storage-path", "", "Root directory for photo storage")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 60s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	quotaLimit := flag.String("default-quota", "", "Default per-user quota in bytes (default: 10GiB)")
	thumbWorkers := flag.String("thumbnail-workers", "", "Max concurrent thumbnail jobs (default: NumCPU)")
	uploadMaxSize := flag.String("upload-max-size", "", "Max upload size in bytes (default: 100MiB)")
	sweepEnabled := flag.String("sweeper-enabled", "", "Enable reconciliation sweeper (default: true)")
	sweepInterval := flag.String("sweeper-interval", "", "Sweep interval (default: 1h)")
	sweepMinAge := flag.String("sweeper-min-blob-age", "", "Grace window before a blob may be swept (default: 15m)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			BasePath: getConfigValue(*storagePath, "STORAGE_PATH", ""),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Quota: QuotaConfig{
			DefaultLimitBytes: getInt64ConfigValue(*quotaLimit, "DEFAULT_QUOTA_BYTES", 10<<30),
		},
		Thumbnail: ThumbnailConfig{
			Workers:     getIntConfigValue(*thumbWorkers, "THUMBNAIL_WORKERS", 0),
			JPEGQuality: getIntConfigValue("", "THUMBNAIL_JPEG_QUALITY", 85),
		},
		Upload: UploadConfig{
			MaxSizeBytes:  getInt64ConfigValue(*uploadMaxSize, "UPLOAD_MAX_SIZE_BYTES", 100<<20),
			RatePerSecond: 2,
			Burst:         5,
		},
		Sweeper: SweeperConfig{
			Enabled: getBoolConfigValue(*sweepEnabled, "SWEEPER_ENABLED", true),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Sweeper.Interval, err = parseDurationValue(*sweepInterval, "SWEEPER_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid sweeper interval: %w", err)
	}
	if cfg.Sweeper.MinBlobAge, err = parseDurationValue(*sweepMinAge, "SWEEPER_MIN_BLOB_AGE", "15m"); err != nil {
		return nil, fmt.Errorf("invalid sweeper min blob age: %w", err)
	}

	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
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

	if c.Storage.BasePath == "" {
		return errors.New("storage base path cannot be empty after expansion")
	}

	if c.Quota.DefaultLimitBytes <= 0 {
		return errors.New("default quota must be positive")
	}

	if c.Upload.MaxSizeBytes <= 0 {
		return errors.New("max upload size must be positive")
	}

	if c.Thumbnail.JPEGQuality < 1 || c.Thumbnail.JPEGQuality > 100 {
		return fmt.Errorf("invalid thumbnail JPEG quality: %d", c.Thumbnail.JPEGQuality)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStoragePath expands ~ and makes the path absolute.
// Defaults to ~/PhotoKeep/storage.
func (c *Config) expandStoragePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "PhotoKeep", "storage")

	expanded, err := expandPath(c.Storage.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
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
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", strValue, err)
	}
	return d, nil
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Real env vars take precedence over .env file entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
