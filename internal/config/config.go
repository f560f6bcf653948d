// Package config provides configuration loading and management for extguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/extguard/internal/telemetry"
)

// EnvPrefix is the prefix for environment variables bound through viper
const EnvPrefix = "EXTGUARD"

const (
	// StorageTypeFile persists key-value data as JSON files in a directory
	StorageTypeFile = "file"

	// StorageTypeRedis persists key-value data in a Redis server
	StorageTypeRedis = "redis"

	// StorageTypeMemory keeps key-value data in process memory only
	StorageTypeMemory = "memory"
)

const (
	defaultIDLength          = 32
	defaultIDCharset         = "a-z0-9"
	defaultCacheValidityDays = 7
	defaultListsDir          = "./lists"
	defaultFetchTimeout      = 30 * time.Second
	defaultRefreshInterval   = 30 * time.Minute
	appDataDirName           = "extguard"
)

// DefaultListFolders is the folder set used when no source registry has been persisted yet
var DefaultListFolders = []string{
	"awesome-lists",
	"extension-list",
	"malicious-extensions-list",
	"chrome-mal-ids",
}

var charsetPattern = regexp.MustCompile(`^[a-zA-Z0-9\-]+$`)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	ExtensionID ExtensionIDConfig `yaml:"extensionId"`
	Cache       CacheConfig       `yaml:"cache"`
	Storage     StorageConfig     `yaml:"storage"`
	Lists       ListsConfig       `yaml:"lists"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Inventory   InventoryConfig   `yaml:"inventory"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Telemetry   *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ExtensionIDConfig describes the shape of a valid extension identifier
type ExtensionIDConfig struct {
	// Validate turns identifier shape checking on or off. Nil means enabled.
	Validate *bool `yaml:"validate,omitempty"`

	// Length is the exact number of characters in an identifier
	Length int `yaml:"length,omitempty"`

	// Charset is a regular expression character class body, e.g. "a-z0-9"
	Charset string `yaml:"charset,omitempty"`
}

// CacheConfig defines the staleness policy for cached lists
type CacheConfig struct {
	// ValidityDays is the number of days a network-refreshed list stays fresh
	ValidityDays int `yaml:"validityDays,omitempty"`
}

// StorageConfig selects the persistent key-value backend
type StorageConfig struct {
	// Type is one of file, redis or memory
	Type string `yaml:"type,omitempty"`

	// Path is the directory used by the file backend
	Path string `yaml:"path,omitempty"`

	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL
	URL string `yaml:"url"`

	// KeyPrefix namespaces every key written by extguard
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// ListsConfig locates the bundled list folders
type ListsConfig struct {
	// Dir contains one sub-directory per bundled list, each with a config.json
	Dir string `yaml:"dir,omitempty"`

	// DefaultFolders is used when no folder list has been persisted yet
	DefaultFolders []string `yaml:"defaultFolders,omitempty"`
}

// FetchConfig defines network fetch settings
type FetchConfig struct {
	Timeout string `yaml:"timeout,omitempty"`
}

// InventoryConfig defines where installed extensions are read from
type InventoryConfig struct {
	// HostExtensionID is excluded from classification
	HostExtensionID string `yaml:"hostExtensionId,omitempty"`

	// ChromiumProfile is a Chromium profile directory (containing Extensions/)
	ChromiumProfile string `yaml:"chromiumProfile,omitempty"`

	// File is a JSON export of installed extensions
	File string `yaml:"file,omitempty"`
}

// RefreshConfig defines background refresh scheduling for the server
type RefreshConfig struct {
	Interval string `yaml:"interval,omitempty"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.ExtensionID.Length == 0 {
		c.ExtensionID.Length = defaultIDLength
	}
	if c.ExtensionID.Charset == "" {
		c.ExtensionID.Charset = defaultIDCharset
	}
	if c.Cache.ValidityDays == 0 {
		c.Cache.ValidityDays = defaultCacheValidityDays
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeFile
	}
	if c.Lists.Dir == "" {
		c.Lists.Dir = defaultListsDir
	}
	if len(c.Lists.DefaultFolders) == 0 {
		c.Lists.DefaultFolders = append([]string(nil), DefaultListFolders...)
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.ExtensionID.Length < 0 {
		return fmt.Errorf("extensionId.length must be positive, got %d", c.ExtensionID.Length)
	}
	if !charsetPattern.MatchString(c.ExtensionID.Charset) {
		return fmt.Errorf("extensionId.charset must be a character class body such as 'a-z0-9', got %q",
			c.ExtensionID.Charset)
	}

	if c.Cache.ValidityDays < 0 {
		return fmt.Errorf("cache.validityDays must not be negative, got %d", c.Cache.ValidityDays)
	}

	switch c.Storage.Type {
	case StorageTypeFile, StorageTypeMemory:
	case StorageTypeRedis:
		if c.Storage.Redis == nil || c.Storage.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required when storage.type is %s", StorageTypeRedis)
		}
	default:
		return fmt.Errorf("storage.type must be one of %s, %s or %s, got %s",
			StorageTypeFile, StorageTypeRedis, StorageTypeMemory, c.Storage.Type)
	}

	if c.Fetch.Timeout != "" {
		if _, err := time.ParseDuration(c.Fetch.Timeout); err != nil {
			return fmt.Errorf("fetch.timeout must be a valid duration (e.g., '30s'): %w", err)
		}
	}

	if c.Refresh.Interval != "" {
		if _, err := time.ParseDuration(c.Refresh.Interval); err != nil {
			return fmt.Errorf("refresh.interval must be a valid duration (e.g., '30m', '1h'): %w", err)
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// Validate exposes validation for configurations built in code
func (c *Config) Validate() error {
	return c.validate()
}

// IsIDValidationEnabled reports whether identifier shape checking is on
func (e ExtensionIDConfig) IsIDValidationEnabled() bool {
	return e.Validate == nil || *e.Validate
}

// IDPattern returns the anchored regular expression source for identifiers
func (e ExtensionIDConfig) IDPattern() string {
	return fmt.Sprintf("^[%s]{%d}$", e.Charset, e.Length)
}

// GetCacheValidity returns the staleness window as a duration
func (c *Config) GetCacheValidity() time.Duration {
	return time.Duration(c.Cache.ValidityDays) * 24 * time.Hour
}

// GetFetchTimeout returns the network fetch timeout, or zero for the client default
func (c *Config) GetFetchTimeout() time.Duration {
	if c.Fetch.Timeout == "" {
		return defaultFetchTimeout
	}
	d, err := time.ParseDuration(c.Fetch.Timeout)
	if err != nil {
		return defaultFetchTimeout
	}
	return d
}

// GetRefreshInterval returns the background refresh interval
func (c *Config) GetRefreshInterval() time.Duration {
	if c.Refresh.Interval == "" {
		return defaultRefreshInterval
	}
	d, err := time.ParseDuration(c.Refresh.Interval)
	if err != nil {
		return defaultRefreshInterval
	}
	return d
}

// GetStorageType returns the configured key-value backend
func (c *Config) GetStorageType() string {
	if c.Storage.Type == "" {
		return StorageTypeFile
	}
	return c.Storage.Type
}

// GetFileStorageBaseDir returns the directory for the file backend,
// defaulting to the XDG data home
func (c *Config) GetFileStorageBaseDir() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(xdg.DataHome, appDataDirName)
}
