package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultAddress         = ":8080"
	defaultBasePath        = "/admin"
	defaultEnvironment     = "local"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultAPITimeout      = 15 * time.Second
	defaultPageSize        = 50
	maxPageSize            = 200
	defaultPollInterval    = 30 * time.Second
	defaultSearchDebounce  = 300 * time.Millisecond
	defaultSearchMinLength = 2
	defaultTimezone        = "UTC"
	defaultControllerTTL   = 30 * time.Minute
	defaultSessionIdle     = 30 * time.Minute
	defaultLogLevel        = "info"
	minSessionHashKeyBytes = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Orders   OrdersConfig
	Session  SessionConfig
	Firebase FirebaseConfig
	Log      LogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Address      string
	BasePath     string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CSRFSecure   bool
}

// APIConfig points the console at the backend order API. An empty BaseURL selects the
// in-memory development backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OrdersConfig tunes the per-session order list controller.
type OrdersConfig struct {
	PageSize        int
	PollInterval    time.Duration
	SearchDebounce  time.Duration
	SearchMinLength int
	Timezone        string
	ControllerTTL   time.Duration
}

// SessionConfig controls cookie session signing.
type SessionConfig struct {
	HashKey      []byte
	BlockKey     []byte
	IdleTimeout  time.Duration
	CookieSecure bool
}

// FirebaseConfig stores Firebase project settings used for staff authentication.
type FirebaseConfig struct {
	ProjectID string
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// Location resolves the configured console time zone.
func (c OrdersConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsLocal reports whether the console runs in a developer environment.
func (c ServerConfig) IsLocal() bool {
	switch strings.ToLower(c.Environment) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the console configuration by combining defaults, .env overrides and
// environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Address:      stringWithDefault(lookup, "ORDERDESK_HTTP_ADDR", defaultAddress),
			BasePath:     stringWithDefault(lookup, "ORDERDESK_BASE_PATH", defaultBasePath),
			Environment:  strings.ToLower(stringWithDefault(lookup, "ORDERDESK_ENVIRONMENT", defaultEnvironment)),
			ReadTimeout:  durationWithDefault(lookup, "ORDERDESK_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "ORDERDESK_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "ORDERDESK_IDLE_TIMEOUT", defaultIdleTimeout),
			CSRFSecure:   boolWithDefault(lookup, "ORDERDESK_CSRF_SECURE", false),
		},
		API: APIConfig{
			BaseURL: strings.TrimSpace(stringWithDefault(lookup, "ORDERDESK_API_BASE_URL", "")),
			Timeout: durationWithDefault(lookup, "ORDERDESK_API_TIMEOUT", defaultAPITimeout),
		},
		Orders: OrdersConfig{
			PageSize:        intWithDefault(lookup, "ORDERDESK_PAGE_SIZE", defaultPageSize),
			PollInterval:    durationWithDefault(lookup, "ORDERDESK_POLL_INTERVAL", defaultPollInterval),
			SearchDebounce:  durationWithDefault(lookup, "ORDERDESK_SEARCH_DEBOUNCE", defaultSearchDebounce),
			SearchMinLength: intWithDefault(lookup, "ORDERDESK_SEARCH_MIN_LENGTH", defaultSearchMinLength),
			Timezone:        stringWithDefault(lookup, "ORDERDESK_TIMEZONE", defaultTimezone),
			ControllerTTL:   durationWithDefault(lookup, "ORDERDESK_CONTROLLER_TTL", defaultControllerTTL),
		},
		Session: SessionConfig{
			HashKey:      []byte(stringWithDefault(lookup, "ORDERDESK_SESSION_HASH_KEY", "")),
			BlockKey:     []byte(stringWithDefault(lookup, "ORDERDESK_SESSION_BLOCK_KEY", "")),
			IdleTimeout:  durationWithDefault(lookup, "ORDERDESK_SESSION_IDLE_TTL", defaultSessionIdle),
			CookieSecure: boolWithDefault(lookup, "ORDERDESK_SESSION_SECURE", false),
		},
		Firebase: FirebaseConfig{
			ProjectID: stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Address) == "" {
		invalid = append(invalid, "Server.Address")
	}
	if cfg.API.BaseURL != "" {
		parsed, err := url.Parse(cfg.API.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			invalid = append(invalid, "API.BaseURL")
		}
	}
	if cfg.API.Timeout <= 0 {
		invalid = append(invalid, "API.Timeout")
	}
	if cfg.Orders.PageSize <= 0 || cfg.Orders.PageSize > maxPageSize {
		invalid = append(invalid, "Orders.PageSize")
	}
	if cfg.Orders.PollInterval <= 0 {
		invalid = append(invalid, "Orders.PollInterval")
	}
	if cfg.Orders.SearchDebounce < 0 {
		invalid = append(invalid, "Orders.SearchDebounce")
	}
	if cfg.Orders.SearchMinLength <= 0 {
		invalid = append(invalid, "Orders.SearchMinLength")
	}
	if _, err := time.LoadLocation(cfg.Orders.Timezone); err != nil {
		invalid = append(invalid, "Orders.Timezone")
	}
	if cfg.Orders.ControllerTTL <= 0 {
		invalid = append(invalid, "Orders.ControllerTTL")
	}
	if !cfg.Server.IsLocal() && len(cfg.Session.HashKey) < minSessionHashKeyBytes {
		invalid = append(invalid, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		invalid = append(invalid, "Session.BlockKey")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
