package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alorle/iptv-catalog/internal/grouping"
)

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Preference storage settings
	Storage struct {
		// DBPath is the bbolt file; empty keeps preferences in memory.
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	// Playlist source settings
	Playlist PlaylistConfig `yaml:"playlist"`

	// Grouping heuristics
	Grouping GroupingConfig `yaml:"grouping"`

	// Resilience settings
	Resilience ResilienceConfig `yaml:"resilience"`
}

// PlaylistConfig controls how the playlist is fetched and refreshed
type PlaylistConfig struct {
	// URL seeds the saved playlist source when none is persisted yet
	URL          string        `yaml:"url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	UserAgent    string        `yaml:"user_agent"`
	// RefreshCron is a cron expression for background reloads; empty disables them
	RefreshCron string `yaml:"refresh_cron"`
	LoadOnStart bool   `yaml:"load_on_start"`
}

// GroupingConfig mirrors grouping.Config in the configuration file
type GroupingConfig struct {
	MinGroupingSize int    `yaml:"min_grouping_size"`
	MinPrefixLength int    `yaml:"min_prefix_length"`
	MinClusterSize  int    `yaml:"min_cluster_size"`
	SeriesKeyMode   string `yaml:"series_key_mode"`
}

// GrouperConfig converts the file representation into grouping.Config
func (g GroupingConfig) GrouperConfig() (grouping.Config, error) {
	mode, err := grouping.ParseSeriesKeyMode(g.SeriesKeyMode)
	if err != nil {
		return grouping.Config{}, err
	}
	cfg := grouping.Config{
		MinGroupingSize: g.MinGroupingSize,
		MinPrefixLength: g.MinPrefixLength,
		MinClusterSize:  g.MinClusterSize,
		SeriesKeyMode:   mode,
	}
	return cfg, cfg.Validate()
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	// Validate HTTP settings
	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}

	// Validate playlist settings
	if c.Playlist.FetchTimeout <= 0 {
		errors = append(errors, "Playlist fetch timeout must be positive")
	}
	if c.Playlist.UserAgent == "" {
		errors = append(errors, "Playlist user agent is required")
	}
	if c.Playlist.URL != "" && !isHTTPURL(c.Playlist.URL) {
		errors = append(errors, fmt.Sprintf("Playlist URL must be an absolute http(s) URL, got %q", c.Playlist.URL))
	}

	// Validate grouping settings
	if _, err := c.Grouping.GrouperConfig(); err != nil {
		errors = append(errors, fmt.Sprintf("Grouping config: %v", err))
	}

	// Validate resilience config
	if err := c.Resilience.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("Resilience config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	// HTTP defaults
	cfg.HTTP.Address = "127.0.0.1"
	cfg.HTTP.Port = "8080"

	// Storage defaults
	cfg.Storage.DBPath = "iptv-catalog.db"

	// Playlist defaults
	cfg.Playlist.FetchTimeout = 30 * time.Second
	cfg.Playlist.UserAgent = "IPTV Smarters Pro"
	cfg.Playlist.LoadOnStart = true

	// Grouping defaults
	g := grouping.DefaultConfig()
	cfg.Grouping = GroupingConfig{
		MinGroupingSize: g.MinGroupingSize,
		MinPrefixLength: g.MinPrefixLength,
		MinClusterSize:  g.MinClusterSize,
		SeriesKeyMode:   string(g.SeriesKeyMode),
	}

	// Resilience defaults
	cfg.Resilience = *DefaultResilienceConfig()

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from a file (if provided) and applies environment variable overrides
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	// Try to load from file if it exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		// File doesn't exist, use defaults
		cfg = Default()
	}

	// Apply environment variable overrides
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	parser := &envParser{}

	// HTTP settings
	parser.parseString("HTTP_ADDRESS", &cfg.HTTP.Address)
	parser.parseString("HTTP_PORT", &cfg.HTTP.Port)

	// Storage settings; DB_PATH may be set to an empty value to force memory storage
	if val, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Storage.DBPath = val
	}
	if cfg.Storage.DBPath != "" {
		absPath, err := resolvePath(cfg.Storage.DBPath)
		if err != nil {
			parser.errors = append(parser.errors, fmt.Sprintf("DB_PATH: %v", err))
		} else {
			cfg.Storage.DBPath = absPath
		}
	}

	// Playlist settings
	parser.parseString("PLAYLIST_URL", &cfg.Playlist.URL)
	parser.parseDuration("PLAYLIST_FETCH_TIMEOUT", &cfg.Playlist.FetchTimeout)
	parser.parseString("PLAYLIST_USER_AGENT", &cfg.Playlist.UserAgent)
	parser.parseString("PLAYLIST_REFRESH_CRON", &cfg.Playlist.RefreshCron)
	parser.parseBool("PLAYLIST_LOAD_ON_START", &cfg.Playlist.LoadOnStart)

	// Grouping settings
	parser.parseInt("GROUPING_MIN_GROUPING_SIZE", &cfg.Grouping.MinGroupingSize)
	parser.parseInt("GROUPING_MIN_PREFIX_LENGTH", &cfg.Grouping.MinPrefixLength)
	parser.parseInt("GROUPING_MIN_CLUSTER_SIZE", &cfg.Grouping.MinClusterSize)
	parser.parseString("GROUPING_SERIES_KEY_MODE", &cfg.Grouping.SeriesKeyMode)

	// Resilience settings
	applyResilienceEnv(parser, &cfg.Resilience)

	return parser.err()
}

// resolvePath normalizes a file path to an absolute path
func resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	return absPath, nil
}

func isHTTPURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// Print outputs the configuration to stdout
func (c *Config) Print() {
	fmt.Printf("httpAddress: %v\n", c.HTTP.Address)
	fmt.Printf("httpPort: %v\n", c.HTTP.Port)
	fmt.Printf("dbPath: %v\n", c.Storage.DBPath)
	fmt.Printf("playlistUrl: %v\n", c.Playlist.URL)
	fmt.Printf("playlistFetchTimeout: %v\n", c.Playlist.FetchTimeout)
	fmt.Printf("playlistUserAgent: %v\n", c.Playlist.UserAgent)
	fmt.Printf("playlistRefreshCron: %v\n", c.Playlist.RefreshCron)
	fmt.Printf("playlistLoadOnStart: %v\n", c.Playlist.LoadOnStart)
	fmt.Printf("groupingMinGroupingSize: %v\n", c.Grouping.MinGroupingSize)
	fmt.Printf("groupingMinPrefixLength: %v\n", c.Grouping.MinPrefixLength)
	fmt.Printf("groupingMinClusterSize: %v\n", c.Grouping.MinClusterSize)
	fmt.Printf("groupingSeriesKeyMode: %v\n", c.Grouping.SeriesKeyMode)
	fmt.Printf("cbFailureThreshold: %v\n", c.Resilience.CBFailureThreshold)
	fmt.Printf("cbTimeout: %v\n", c.Resilience.CBTimeout)
	fmt.Printf("cbHalfOpenRequests: %v\n", c.Resilience.CBHalfOpenRequests)
	fmt.Printf("logLevel: %v\n", c.Resilience.LogLevel)
}
