// ABOUTME: Configuration loading and parsing for career-scout
// ABOUTME: Supports YAML or TOML files with environment variable expansion, defaults, and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // scanner.timezone is validated without system zoneinfo

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete career-scout configuration
type Config struct {
	Matrix   MatrixConfig    `yaml:"matrix" toml:"matrix"`
	Channels []ChannelConfig `yaml:"channels" toml:"channels"`
	Keywords KeywordsConfig  `yaml:"keywords" toml:"keywords"`
	Cache    CacheConfig     `yaml:"cache" toml:"cache"`
	Scanner  ScannerConfig   `yaml:"scanner" toml:"scanner"`
	Logging  LoggingConfig   `yaml:"logging" toml:"logging"`
	DataDir  string          `yaml:"data_dir" toml:"data_dir"`
}

// MatrixConfig holds the homeserver connection and destination room
type MatrixConfig struct {
	Homeserver  string `yaml:"homeserver" toml:"homeserver"`
	UserID      string `yaml:"user_id" toml:"user_id"`
	AccessToken string `yaml:"access_token" toml:"access_token"`
	Username    string `yaml:"username" toml:"username"`
	Password    string `yaml:"password" toml:"password"`
	DeviceID    string `yaml:"device_id" toml:"device_id"`
	Encryption  bool   `yaml:"encryption" toml:"encryption"`
	RecoveryKey string `yaml:"recovery_key" toml:"recovery_key"`
	// Destination is the room ID or alias posts are republished to
	Destination string `yaml:"destination" toml:"destination"`
}

// EncryptionEnabled reports whether E2EE should be set up. A recovery key
// implies encryption.
func (m MatrixConfig) EncryptionEnabled() bool {
	return m.Encryption || m.RecoveryKey != ""
}

// ChannelConfig is one source room to scan
type ChannelConfig struct {
	ID   string `yaml:"id" toml:"id"`
	Name string `yaml:"name" toml:"name"`
}

// KeywordsConfig holds the relevance filter lists
type KeywordsConfig struct {
	Positions []string `yaml:"positions" toml:"positions"`
	StopWords []string `yaml:"stop_words" toml:"stop_words"`
}

// CacheConfig holds dedupe cache settings
type CacheConfig struct {
	Backend string        `yaml:"backend" toml:"backend"`
	Path    string        `yaml:"path" toml:"path"`
	Size    int           `yaml:"size" toml:"size"`
	TTL     time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// ScannerConfig holds scan loop timing
type ScannerConfig struct {
	DaysToParse  int           `yaml:"days_to_parse" toml:"days_to_parse"`
	Timezone     string        `yaml:"timezone" toml:"timezone"`
	PageSize     int           `yaml:"page_size" toml:"page_size"`
	RequestDelay time.Duration `yaml:"-" toml:"-"`
	Pause        time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	RequestDelayRaw string `yaml:"request_delay" toml:"request_delay"`
	PauseRaw        string `yaml:"pause" toml:"pause"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Format     string `yaml:"format" toml:"format"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// Default values applied to unset fields.
const (
	DefaultCacheBackend = "json"
	DefaultCachePath    = "data/cache/messages.json"
	DefaultCacheSize    = 1000
	DefaultCacheTTL     = 24 * time.Hour
	DefaultDaysToParse  = 1
	DefaultRequestDelay = 2 * time.Second
	DefaultPause        = 30 * time.Minute
	DefaultTimezone     = "UTC"
	DefaultPageSize     = 100
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultLogMaxSizeMB = 10
	DefaultLogBackups   = 5
	DefaultDataDir      = "data"
)

// EnvConfigPath names the environment variable that overrides the config path.
const EnvConfigPath = "CAREER_SCOUT_CONFIG"

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, after loading
// a .env file from the working directory when one exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// Parse decodes raw config content, applies defaults, and validates it.
func Parse(data []byte, isTOML bool) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if isTOML {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset fields. A zero count (cache.size,
// scanner.days_to_parse, scanner.page_size) counts as unset, whether omitted
// or written explicitly.
func (c *Config) applyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Cache.TTLRaw == "" {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Scanner.DaysToParse == 0 {
		c.Scanner.DaysToParse = DefaultDaysToParse
	}
	if c.Scanner.RequestDelayRaw == "" {
		c.Scanner.RequestDelay = DefaultRequestDelay
	}
	if c.Scanner.PauseRaw == "" {
		c.Scanner.Pause = DefaultPause
	}
	if c.Scanner.Timezone == "" {
		c.Scanner.Timezone = DefaultTimezone
	}
	if c.Scanner.PageSize == 0 {
		c.Scanner.PageSize = DefaultPageSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogBackups
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("matrix.homeserver must use http or https scheme")
	}

	if c.Matrix.AccessToken != "" {
		if c.Matrix.UserID == "" {
			return fmt.Errorf("matrix.user_id is required with matrix.access_token")
		}
	} else if c.Matrix.Username == "" || c.Matrix.Password == "" {
		return fmt.Errorf("matrix.access_token or matrix.username and matrix.password are required")
	}

	if c.Matrix.Destination == "" {
		return fmt.Errorf("matrix.destination is required")
	}
	if !isRoomRef(c.Matrix.Destination) {
		return fmt.Errorf("matrix.destination %q must be a room ID (!...) or alias (#...)", c.Matrix.Destination)
	}

	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channels[%d].id is required", i)
		}
		if !isRoomRef(ch.ID) {
			return fmt.Errorf("channels[%d].id %q must be a room ID (!...) or alias (#...)", i, ch.ID)
		}
	}

	if len(c.Keywords.Positions) == 0 {
		return fmt.Errorf("keywords.positions must list at least one keyword")
	}

	switch c.Cache.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("cache.backend must be json or sqlite, got %q", c.Cache.Backend)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative (0 selects the default)")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Scanner.DaysToParse < 0 {
		return fmt.Errorf("scanner.days_to_parse must not be negative (0 selects the default)")
	}
	if c.Scanner.PageSize < 0 {
		return fmt.Errorf("scanner.page_size must not be negative (0 selects the default)")
	}
	if c.Scanner.RequestDelay < 0 {
		return fmt.Errorf("scanner.request_delay must not be negative")
	}
	if c.Scanner.Pause < 0 {
		return fmt.Errorf("scanner.pause must not be negative")
	}
	if _, err := time.LoadLocation(c.Scanner.Timezone); err != nil {
		return fmt.Errorf("scanner.timezone %q is not a known time zone", c.Scanner.Timezone)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func isRoomRef(s string) bool {
	return strings.HasPrefix(s, "!") || strings.HasPrefix(s, "#")
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Cache.TTLRaw != "" {
		cfg.Cache.TTL, err = time.ParseDuration(cfg.Cache.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache ttl %q: %w", cfg.Cache.TTLRaw, err)
		}
	}

	if cfg.Scanner.RequestDelayRaw != "" {
		cfg.Scanner.RequestDelay, err = time.ParseDuration(cfg.Scanner.RequestDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing request_delay %q: %w", cfg.Scanner.RequestDelayRaw, err)
		}
	}

	if cfg.Scanner.PauseRaw != "" {
		cfg.Scanner.Pause, err = time.ParseDuration(cfg.Scanner.PauseRaw)
		if err != nil {
			return fmt.Errorf("parsing pause %q: %w", cfg.Scanner.PauseRaw, err)
		}
	}

	return nil
}

// ResolvePath picks the config file location.
// Priority: explicit path > CAREER_SCOUT_CONFIG > ./config.yaml > XDG_CONFIG_HOME/career-scout/config.yaml > ~/.config/career-scout/config.yaml
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "career-scout", "config.yaml")
}
