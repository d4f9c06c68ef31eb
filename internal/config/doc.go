// Package config handles configuration loading for career-scout.
//
// # Overview
//
// Configuration is loaded once at startup from a YAML file (or TOML when the
// file ends in .toml) with environment variable expansion. Unset values get
// defaults and the result is validated before anything connects.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from CAREER_SCOUT_CONFIG environment variable
//  3. ./config.yaml (current directory)
//  4. ~/.config/career-scout/config.yaml
//
// # Environment Variable Expansion
//
// A .env file in the working directory is loaded first if present. Values can
// then reference environment variables:
//
//	matrix:
//	  access_token: "${SCOUT_MATRIX_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	cache:
//	  ttl: "24h"
//	scanner:
//	  request_delay: "2s"
//	  pause: "30m"
//
// # Defaults
//
// Omitted values take the defaults shown below. For the counts cache.size,
// scanner.days_to_parse and scanner.page_size an explicit 0 also means "use
// the default"; negative values are rejected.
//
// # Configuration Sections
//
// Matrix connection (token or username/password):
//
//	matrix:
//	  homeserver: "https://matrix.org"
//	  user_id: "@scout:matrix.org"
//	  access_token: "${SCOUT_MATRIX_TOKEN}"
//	  encryption: false
//	  recovery_key: ""
//	  destination: "#vacancies:matrix.org"
//
// Source rooms and keywords:
//
//	channels:
//	  - id: "#ios-jobs:matrix.org"
//	    name: "iOS Jobs"
//	keywords:
//	  positions: ["ios developer", "ios engineer"]
//	  stop_words: ["searching", "resume"]
//
// Dedupe cache:
//
//	cache:
//	  backend: "json"   # json, sqlite
//	  path: "data/cache/messages.json"
//	  size: 1000
//	  ttl: "24h"
//
// Scanner:
//
//	scanner:
//	  days_to_parse: 1
//	  request_delay: "2s"
//	  pause: "30m"
//	  timezone: "Europe/Moscow"
//	  page_size: 100
//
// Logging:
//
//	logging:
//	  level: "info"     # debug, info, warn, error
//	  format: "text"    # text, json
//	  file: "logs/career-scout.log"
//	  max_size_mb: 10
//	  max_backups: 5
package config
