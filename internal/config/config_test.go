// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@scout:example.org"
  access_token: "token-123"
  destination: "#vacancies:example.org"

channels:
  - id: "#ios-jobs:example.org"
    name: "iOS Jobs"
  - id: "!abc:example.org"

keywords:
  positions:
    - "ios developer"
    - "ios engineer"
  stop_words:
    - "searching"
    - "resume"

cache:
  backend: "sqlite"
  path: "/tmp/scout/cache.db"
  size: 500
  ttl: "12h"

scanner:
  days_to_parse: 3
  request_delay: "1500ms"
  pause: "15m"
  timezone: "Europe/Moscow"
  page_size: 50

logging:
  level: "debug"
  format: "json"
  file: "logs/scout.log"
  max_size_mb: 20
  max_backups: 2

data_dir: "/var/lib/scout"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.Homeserver != "https://matrix.example.org" {
		t.Errorf("Matrix.Homeserver = %q", cfg.Matrix.Homeserver)
	}
	if cfg.Matrix.Destination != "#vacancies:example.org" {
		t.Errorf("Matrix.Destination = %q", cfg.Matrix.Destination)
	}

	if len(cfg.Channels) != 2 {
		t.Fatalf("len(Channels) = %d, want 2", len(cfg.Channels))
	}
	if cfg.Channels[0].ID != "#ios-jobs:example.org" || cfg.Channels[0].Name != "iOS Jobs" {
		t.Errorf("Channels[0] = %+v", cfg.Channels[0])
	}
	if cfg.Channels[1].Name != "" {
		t.Errorf("Channels[1].Name = %q, want empty", cfg.Channels[1].Name)
	}

	if strings.Join(cfg.Keywords.Positions, ",") != "ios developer,ios engineer" {
		t.Errorf("Keywords.Positions = %v", cfg.Keywords.Positions)
	}
	if strings.Join(cfg.Keywords.StopWords, ",") != "searching,resume" {
		t.Errorf("Keywords.StopWords = %v", cfg.Keywords.StopWords)
	}

	if cfg.Cache.Backend != "sqlite" || cfg.Cache.Path != "/tmp/scout/cache.db" || cfg.Cache.Size != 500 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != 12*time.Hour {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, 12*time.Hour)
	}

	if cfg.Scanner.DaysToParse != 3 {
		t.Errorf("Scanner.DaysToParse = %d, want 3", cfg.Scanner.DaysToParse)
	}
	if cfg.Scanner.RequestDelay != 1500*time.Millisecond {
		t.Errorf("Scanner.RequestDelay = %v", cfg.Scanner.RequestDelay)
	}
	if cfg.Scanner.Pause != 15*time.Minute {
		t.Errorf("Scanner.Pause = %v", cfg.Scanner.Pause)
	}
	if cfg.Scanner.Timezone != "Europe/Moscow" || cfg.Scanner.PageSize != 50 {
		t.Errorf("Scanner = %+v", cfg.Scanner)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.File != "logs/scout.log" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != 20 || cfg.Logging.MaxBackups != 2 {
		t.Errorf("Logging rotation = %+v", cfg.Logging)
	}
	if cfg.DataDir != "/var/lib/scout" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
matrix:
  homeserver: "https://matrix.example.org"
  username: "scout"
  password: "hunter2"
  destination: "!dest:example.org"
channels:
  - id: "#jobs:example.org"
keywords:
  positions: ["golang"]
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.Backend != DefaultCacheBackend {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, DefaultCacheBackend)
	}
	if cfg.Cache.Path != DefaultCachePath {
		t.Errorf("Cache.Path = %q, want %q", cfg.Cache.Path, DefaultCachePath)
	}
	if cfg.Cache.Size != DefaultCacheSize {
		t.Errorf("Cache.Size = %d, want %d", cfg.Cache.Size, DefaultCacheSize)
	}
	if cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, DefaultCacheTTL)
	}
	if cfg.Scanner.DaysToParse != DefaultDaysToParse {
		t.Errorf("Scanner.DaysToParse = %d", cfg.Scanner.DaysToParse)
	}
	if cfg.Scanner.RequestDelay != DefaultRequestDelay {
		t.Errorf("Scanner.RequestDelay = %v", cfg.Scanner.RequestDelay)
	}
	if cfg.Scanner.Pause != DefaultPause {
		t.Errorf("Scanner.Pause = %v", cfg.Scanner.Pause)
	}
	if cfg.Scanner.Timezone != DefaultTimezone {
		t.Errorf("Scanner.Timezone = %q", cfg.Scanner.Timezone)
	}
	if cfg.Scanner.PageSize != DefaultPageSize {
		t.Errorf("Scanner.PageSize = %d", cfg.Scanner.PageSize)
	}
	if cfg.Logging.Level != DefaultLogLevel || cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB || cfg.Logging.MaxBackups != DefaultLogBackups {
		t.Errorf("Logging rotation = %+v", cfg.Logging)
	}
	if cfg.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Matrix.EncryptionEnabled() {
		t.Error("EncryptionEnabled() = true, want false")
	}
}

func TestLoad_ExplicitZeroCountsUseDefaults(t *testing.T) {
	content := `
matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@scout:example.org"
  access_token: "token"
  destination: "!dest:example.org"
channels:
  - id: "#jobs:example.org"
keywords:
  positions: ["golang"]
cache:
  size: 0
scanner:
  days_to_parse: 0
  page_size: 0
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.Size != DefaultCacheSize {
		t.Errorf("Cache.Size = %d, want %d", cfg.Cache.Size, DefaultCacheSize)
	}
	if cfg.Scanner.DaysToParse != DefaultDaysToParse {
		t.Errorf("Scanner.DaysToParse = %d, want %d", cfg.Scanner.DaysToParse, DefaultDaysToParse)
	}
	if cfg.Scanner.PageSize != DefaultPageSize {
		t.Errorf("Scanner.PageSize = %d, want %d", cfg.Scanner.PageSize, DefaultPageSize)
	}
}

func TestLoad_TOML(t *testing.T) {
	content := `
data_dir = "/data"

[matrix]
homeserver = "https://matrix.example.org"
user_id = "@scout:example.org"
access_token = "tok"
destination = "#vacancies:example.org"
recovery_key = "EsTc abcd"

[[channels]]
id = "#ios-jobs:example.org"
name = "iOS Jobs"

[keywords]
positions = ["ios developer"]
stop_words = ["resume"]

[cache]
ttl = "1h"

[scanner]
pause = "5m"
`
	cfg, err := Load(writeConfig(t, "config.toml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Channels) != 1 || cfg.Channels[0].Name != "iOS Jobs" {
		t.Errorf("Channels = %+v", cfg.Channels)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Scanner.Pause != 5*time.Minute {
		t.Errorf("Scanner.Pause = %v, want 5m", cfg.Scanner.Pause)
	}
	if !cfg.Matrix.EncryptionEnabled() {
		t.Error("recovery key should imply encryption")
	}
	if cfg.DataDir != "/data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SCOUT_TOKEN", "from-env")
	t.Setenv("TEST_SCOUT_ROOM", "!fromenv:example.org")

	content := strings.Replace(validYAML, `"token-123"`, `"${TEST_SCOUT_TOKEN}"`, 1)
	content = strings.Replace(content, `"!abc:example.org"`, `"${TEST_SCOUT_ROOM}"`, 1)

	cfg, err := Load(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.AccessToken != "from-env" {
		t.Errorf("Matrix.AccessToken = %q, want %q", cfg.Matrix.AccessToken, "from-env")
	}
	if cfg.Channels[1].ID != "!fromenv:example.org" {
		t.Errorf("Channels[1].ID = %q", cfg.Channels[1].ID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", "matrix: [unclosed"))
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	content := strings.Replace(validYAML, `ttl: "12h"`, `ttl: "twelve hours"`, 1)

	_, err := Load(writeConfig(t, "config.yaml", content))
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "ttl") {
		t.Errorf("error %q should mention ttl", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no homeserver", mutate: func(c *Config) { c.Matrix.Homeserver = "" }, wantErr: "matrix.homeserver is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.Matrix.Homeserver = "ftp://x" }, wantErr: "http or https"},
		{name: "token without user", mutate: func(c *Config) { c.Matrix.UserID = "" }, wantErr: "matrix.user_id"},
		{name: "no credentials", mutate: func(c *Config) { c.Matrix.AccessToken = "" }, wantErr: "matrix.access_token"},
		{name: "password login", mutate: func(c *Config) {
			c.Matrix.AccessToken = ""
			c.Matrix.Username = "scout"
			c.Matrix.Password = "pw"
		}},
		{name: "no destination", mutate: func(c *Config) { c.Matrix.Destination = "" }, wantErr: "matrix.destination is required"},
		{name: "bad destination", mutate: func(c *Config) { c.Matrix.Destination = "vacancies" }, wantErr: "room ID"},
		{name: "no channels", mutate: func(c *Config) { c.Channels = nil }, wantErr: "at least one channel"},
		{name: "empty channel id", mutate: func(c *Config) { c.Channels[0].ID = "" }, wantErr: "channels[0].id is required"},
		{name: "bad channel id", mutate: func(c *Config) { c.Channels[1].ID = "@user:example.org" }, wantErr: "channels[1].id"},
		{name: "no positions", mutate: func(c *Config) { c.Keywords.Positions = nil }, wantErr: "keywords.positions"},
		{name: "bad backend", mutate: func(c *Config) { c.Cache.Backend = "redis" }, wantErr: "cache.backend"},
		{name: "negative size", mutate: func(c *Config) { c.Cache.Size = -1 }, wantErr: "cache.size must not be negative"},
		{name: "negative page size", mutate: func(c *Config) { c.Scanner.PageSize = -1 }, wantErr: "scanner.page_size must not be negative"},
		{name: "zero ttl", mutate: func(c *Config) { c.Cache.TTL = 0 }, wantErr: "cache.ttl"},
		{name: "negative days", mutate: func(c *Config) { c.Scanner.DaysToParse = -1 }, wantErr: "scanner.days_to_parse must not be negative"},
		{name: "negative delay", mutate: func(c *Config) { c.Scanner.RequestDelay = -time.Second }, wantErr: "request_delay"},
		{name: "negative pause", mutate: func(c *Config) { c.Scanner.Pause = -time.Second }, wantErr: "scanner.pause"},
		{name: "unknown zone", mutate: func(c *Config) { c.Scanner.Timezone = "Mars/Base" }, wantErr: "timezone"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML), false)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/from/env.yaml")
		if got := ResolvePath("/explicit.yaml"); got != "/explicit.yaml" {
			t.Errorf("ResolvePath() = %q", got)
		}
	})

	t.Run("env var", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/from/env.yaml")
		if got := ResolvePath(""); got != "/from/env.yaml" {
			t.Errorf("ResolvePath() = %q", got)
		}
	})

	t.Run("xdg", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		want := filepath.Join("/xdg", "career-scout", "config.yaml")
		if got := ResolvePath(""); got != want {
			t.Errorf("ResolvePath() = %q, want %q", got, want)
		}
	})
}
