// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ragterm/internal/logging"
	"github.com/jeranaias/ragterm/internal/util"
)

// Defaults for the backend connection.
const (
	DefaultHost = "localhost"
	DefaultPort = "8000"

	configDirName  = ".ragterm"
	configFileName = "config.toml"
	stateFileName  = "state.db"
)

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as "2s" or "500ms" in TOML and JSON.
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration {
	return Duration{d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare number is
// taken as seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragterm configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Tasks   TasksConfig   `toml:"tasks" json:"tasks"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Watch   WatchConfig   `toml:"watch" json:"watch"`
}

// APIConfig locates the backend.
type APIConfig struct {
	// URL is the full base URL. It wins over Host when set.
	URL string `toml:"url" json:"url"`
	// Host is combined with the default port when URL is empty
	Host string `toml:"host" json:"host"`
	// Timeout bounds non-streaming requests
	Timeout Duration `toml:"timeout" json:"timeout"`
	// RateLimit is requests per second, 0 for unlimited
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`
}

// ChatConfig holds chat display preferences.
type ChatConfig struct {
	ShowReasoning bool `toml:"show_reasoning" json:"show_reasoning"`
}

// TasksConfig controls the background task poller.
type TasksConfig struct {
	PollInterval    Duration `toml:"poll_interval" json:"poll_interval"`
	CompletedWindow Duration `toml:"completed_window" json:"completed_window"`
	Type            string   `toml:"type" json:"type"`
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	// Theme is "auto", "dark", "light" or "none"
	Theme    string `toml:"theme" json:"theme"`
	LogLevel string `toml:"log_level" json:"log_level"`
}

// StorageConfig locates the client state database.
type StorageConfig struct {
	// Path is the SQLite file (empty = ~/.ragterm/state.db)
	Path string `toml:"path" json:"path"`
}

// WatchConfig controls folder watching for auto-upload.
type WatchConfig struct {
	Debounce Duration `toml:"debounce" json:"debounce"`
	// Strategy applies to duplicates found while watching
	Strategy string `toml:"strategy" json:"strategy"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout:   D(30 * time.Second),
			RateBurst: 5,
		},
		Chat: ChatConfig{
			ShowReasoning: true,
		},
		Tasks: TasksConfig{
			PollInterval:    D(2 * time.Second),
			CompletedWindow: D(60 * time.Second),
			Type:            "ingestion",
		},
		UI: UIConfig{
			Theme:    "auto",
			LogLevel: "warn",
		},
		Watch: WatchConfig{
			Debounce: D(500 * time.Millisecond),
			Strategy: "rename",
		},
	}
}

// SetDefaults fills zero values left by partial config files.
func (c *Config) SetDefaults() {
	def := Default()
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = def.API.RateBurst
	}
	if c.Tasks.PollInterval.Duration == 0 {
		c.Tasks.PollInterval = def.Tasks.PollInterval
	}
	if c.Tasks.CompletedWindow.Duration == 0 {
		c.Tasks.CompletedWindow = def.Tasks.CompletedWindow
	}
	if c.Tasks.Type == "" {
		c.Tasks.Type = def.Tasks.Type
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.LogLevel == "" {
		c.UI.LogLevel = def.UI.LogLevel
	}
	if c.Watch.Debounce.Duration == 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.ragterm.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigPath returns ~/.ragterm/config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureConfigDir creates ~/.ragterm with owner-only permissions.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StatePath returns the client state database path.
func (c *Config) StatePath() (string, error) {
	if c.Storage.Path != "" {
		return expandHome(c.Storage.Path), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// =============================================================================
// LOADING
// =============================================================================

// LoadDotEnv loads .env from the working directory and the config dir.
// Variables already set in the process environment are never overridden.
func LoadDotEnv() {
	paths := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load reads the default config file, applies env overrides and
// validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load for an explicit file.
func LoadFromPath(path string) (*Config, error) {
	LoadDotEnv()

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", statErr)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path into cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logging.Default().Warn("unknown config keys ignored", "path", path, "keys", fmt.Sprint(undecoded))
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg atomically with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# ragterm configuration file\n")
	b.WriteString("# Environment variables (RAGTERM_*) take precedence over these values.\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validThemes     = map[string]bool{"auto": true, "dark": true, "light": true, "none": true}
	validStrategies = map[string]bool{"": true, "rename": true, "use_existing": true, "overwrite": true}
)

// MinPollInterval is the fastest allowed task poll.
const MinPollInterval = 100 * time.Millisecond

// Validate returns ValidateErrors describing every invalid field.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.URL != "" {
		u, err := url.Parse(c.API.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.url",
				Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.API.URL),
			})
		}
	}
	if strings.Contains(c.API.Host, "/") {
		errs = append(errs, ValidationError{Field: "api.host", Message: "must be a hostname, not a URL"})
	}
	if c.API.Timeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "api.timeout", Message: "must not be negative"})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit", Message: "must not be negative"})
	}

	if c.Tasks.PollInterval.Duration < MinPollInterval {
		errs = append(errs, ValidationError{
			Field:   "tasks.poll_interval",
			Message: fmt.Sprintf("must be at least %s", MinPollInterval),
		})
	}
	if c.Tasks.CompletedWindow.Duration <= 0 {
		errs = append(errs, ValidationError{Field: "tasks.completed_window", Message: "must be positive"})
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light, none", c.UI.Theme),
		})
	}
	if _, err := logging.ParseLevel(c.UI.LogLevel); err != nil {
		errs = append(errs, ValidationError{Field: "ui.log_level", Message: err.Error()})
	}

	if !validStrategies[c.Watch.Strategy] {
		errs = append(errs, ValidationError{
			Field:   "watch.strategy",
			Message: fmt.Sprintf("invalid strategy '%s', must be one of: rename, use_existing, overwrite", c.Watch.Strategy),
		})
	}
	if c.Watch.Debounce.Duration < 0 {
		errs = append(errs, ValidationError{Field: "watch.debounce", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGTERM_API_URL: overrides api.url
//   - RAGTERM_HOST: overrides api.host
//   - RAGTERM_LOG_LEVEL: overrides ui.log_level
//   - RAGTERM_STATE_PATH: overrides storage.path
//   - RAGTERM_POLL_INTERVAL: overrides tasks.poll_interval ("2s" or seconds)
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RAGTERM_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("RAGTERM_HOST"); v != "" {
		c.API.Host = v
	}
	if v := os.Getenv("RAGTERM_LOG_LEVEL"); v != "" {
		c.UI.LogLevel = v
	}
	if v := os.Getenv("RAGTERM_STATE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("RAGTERM_POLL_INTERVAL"); v != "" {
		if d, err := parseDuration(v); err == nil {
			c.Tasks.PollInterval = D(d)
		}
	}
}

// ResolveBaseURL picks the backend base URL: an explicit value (usually a
// flag), then api.url, then api.host on the default port, then
// http://localhost:8000. The result has no trailing slash.
func (c *Config) ResolveBaseURL(explicit string) string {
	if u := strings.TrimSpace(explicit); u != "" {
		return strings.TrimRight(u, "/")
	}
	if c.API.URL != "" {
		return strings.TrimRight(c.API.URL, "/")
	}
	host := strings.TrimSpace(c.API.Host)
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, ":") {
		host += ":" + DefaultPort
	}
	return "http://" + host
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using its TOML key (e.g., "tasks.type").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if d, ok := field.Interface().(Duration); ok {
		return d.String(), nil
	}
	return field.Interface(), nil
}

// Set sets a configuration value from its string form.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// lookup walks "section.key" through the struct by TOML tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if _, isDuration := field.Interface().(Duration); !isDuration && field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a key", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("'%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value string) error {
	if _, ok := field.Interface().(Duration); ok {
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(D(d)))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean '%s'", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer '%s'", value)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number '%s'", value)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}
