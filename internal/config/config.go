// Package config loads server configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Empty-cell policies for the SERP tool.
const (
	// EmptyCellsClear writes an empty title or description, resetting it.
	EmptyCellsClear = "clear"
	// EmptyCellsKeep treats an empty cell as absent and leaves the value alone.
	EmptyCellsKeep = "keep"
)

// DefaultMaxUploadBytes is the upload size cap (2 MiB).
const DefaultMaxUploadBytes int64 = 2 << 20

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Auth    AuthConfig
	Tools   ToolsConfig
	Archive ArchiveConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds on-disk locations. Everything defaults to a path
// under DataDir.
type StorageConfig struct {
	DataDir      string
	DatabasePath string
	SearchPath   string
	NoticePath   string
	KeyPath      string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name           string
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key, set from Storage.KeyPath at startup.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
	// Bootstrap admin created on first start when no users exist.
	AdminEmail    string
	AdminPassword string
}

// ToolsConfig holds bulk tool settings.
type ToolsConfig struct {
	MaxUploadBytes   int64
	SerpEmptyCells   string
	SEOPluginActive  bool
	SiteURL          string
	UploadsPerMinute int
}

// ArchiveConfig configures optional archiving of processed uploads to an
// S3-compatible bucket. Archiving is off when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bulkmeta", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataDir := fs.String("data-dir", "", "Directory for the database, search index and notices")
	dbPath := fs.String("db-path", "", "SQLite database path (default: {data-dir}/bulkmeta.db)")
	searchPath := fs.String("search-path", "", "Search index path (default: {data-dir}/search)")
	noticePath := fs.String("notice-path", "", "Notice mailbox path (default: {data-dir}/notices)")

	serverHost := fs.String("host", "", "Listen host (default: all interfaces)")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 30s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 5m)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 12h)")
	adminEmail := fs.String("admin-email", "", "Bootstrap admin email")

	maxUpload := fs.String("max-upload-bytes", "", "Upload size cap in bytes (default: 2097152)")
	serpEmptyCells := fs.String("serp-empty-cells", "", "SERP empty cell policy: clear or keep (default: clear)")
	seoPluginActive := fs.String("seo-plugin-active", "", "Whether the SEO plugin is active (default: true)")
	siteURL := fs.String("site-url", "", "Public site URL used to build permalinks")
	uploadsPerMinute := fs.String("uploads-per-minute", "", "Per-user upload rate limit (default: 6)")

	archiveBucket := fs.String("archive-bucket", "", "S3 bucket for processed uploads")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is not an error.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataDir:      getConfigValue(*dataDir, "DATA_DIR", ""),
			DatabasePath: getConfigValue(*dbPath, "DB_PATH", ""),
			SearchPath:   getConfigValue(*searchPath, "SEARCH_PATH", ""),
			NoticePath:   getConfigValue(*noticePath, "NOTICE_PATH", ""),
			KeyPath:      getConfigValue("", "AUTH_KEY_PATH", ""),
		},
		Server: ServerConfig{
			Name:           getConfigValue("", "SERVER_NAME", "bulkmeta"),
			Host:           getConfigValue(*serverHost, "SERVER_HOST", ""),
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			AdminEmail:    getConfigValue(*adminEmail, "ADMIN_EMAIL", ""),
			AdminPassword: getConfigValue("", "ADMIN_PASSWORD", ""),
		},
		Tools: ToolsConfig{
			SerpEmptyCells:   strings.ToLower(getConfigValue(*serpEmptyCells, "SERP_EMPTY_CELLS", EmptyCellsClear)),
			SEOPluginActive:  getBoolConfigValue(*seoPluginActive, "SEO_PLUGIN_ACTIVE", true),
			SiteURL:          strings.TrimRight(getConfigValue(*siteURL, "SITE_URL", ""), "/"),
			UploadsPerMinute: getIntConfigValue(*uploadsPerMinute, "UPLOAD_RATE_PER_MINUTE", 6),
		},
		Archive: ArchiveConfig{
			Bucket:          getConfigValue(*archiveBucket, "ARCHIVE_BUCKET", ""),
			Region:          getConfigValue("", "ARCHIVE_REGION", "us-east-1"),
			Endpoint:        getConfigValue("", "ARCHIVE_ENDPOINT", ""),
			Prefix:          strings.Trim(getConfigValue("", "ARCHIVE_PREFIX", "uploads"), "/"),
			UsePathStyle:    getBoolConfigValue("", "ARCHIVE_PATH_STYLE", false),
			AccessKeyID:     getConfigValue("", "ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getConfigValue("", "ARCHIVE_SECRET_ACCESS_KEY", ""),
		},
	}

	maxUploadStr := getConfigValue(*maxUpload, "MAX_UPLOAD_BYTES", strconv.FormatInt(DefaultMaxUploadBytes, 10))
	maxUploadBytes, err := strconv.ParseInt(maxUploadStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid max upload bytes %q: %w", maxUploadStr, err)
	}
	cfg.Tools.MaxUploadBytes = maxUploadBytes

	durations := []struct {
		flag, env, def, name string
		dst                  *time.Duration
	}{
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "12h", "access token duration", &cfg.Auth.AccessTokenDuration},
		{*readTimeout, "SERVER_READ_TIMEOUT", "30s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "5m", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandStoragePaths(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataDir == "" {
		return errors.New("data directory cannot be empty after expansion")
	}

	if c.Tools.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Tools.MaxUploadBytes)
	}

	if c.Tools.SerpEmptyCells != EmptyCellsClear && c.Tools.SerpEmptyCells != EmptyCellsKeep {
		return fmt.Errorf("invalid SERP empty cell policy: %q (must be %s or %s)",
			c.Tools.SerpEmptyCells, EmptyCellsClear, EmptyCellsKeep)
	}

	if c.Tools.UploadsPerMinute <= 0 {
		return fmt.Errorf("uploads per minute must be positive, got %d", c.Tools.UploadsPerMinute)
	}

	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if c.Archive.Enabled() && (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return errors.New("archive credentials must include both access key id and secret")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute. An empty path yields
// defaultPath unchanged.
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

func (c *Config) expandStoragePaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	s := &c.Storage
	if s.DataDir, err = expandPath(s.DataDir, filepath.Join(homeDir, ".bulkmeta")); err != nil {
		return err
	}
	if s.DatabasePath, err = expandPath(s.DatabasePath, filepath.Join(s.DataDir, "bulkmeta.db")); err != nil {
		return err
	}
	if s.SearchPath, err = expandPath(s.SearchPath, filepath.Join(s.DataDir, "search")); err != nil {
		return err
	}
	if s.NoticePath, err = expandPath(s.NoticePath, filepath.Join(s.DataDir, "notices")); err != nil {
		return err
	}
	if s.KeyPath, err = expandPath(s.KeyPath, filepath.Join(s.DataDir, "auth.key")); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as
// true; any other non-empty value is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default. Values
// that do not parse yield the default.
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines from path into the environment without
// overriding variables that are already set.
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

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
