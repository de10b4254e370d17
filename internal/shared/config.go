package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	defaultWordlistTimeout = 10 * time.Second
	defaultBackupDebounce  = 2 * time.Second
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Wordlist WordlistConfig `toml:"wordlist"`
	Server   ServerConfig   `toml:"server"`
	Backup   BackupConfig   `toml:"backup"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// WordlistConfig controls where wordlists are read from and how they are validated.
type WordlistConfig struct {
	Dir      string `toml:"dir"`
	Fallback string `toml:"fallback"`
	MinSize  int    `toml:"min_size"`
	Timeout  string `toml:"timeout"`
}

// ServerConfig contains HTTP server settings for the local alias API.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// BackupConfig contains remote backup settings. Credentials live in the settings store, not here.
type BackupConfig struct {
	APIURL            string  `toml:"api_url"`
	Debounce          string  `toml:"debounce"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PathPrefix        string  `toml:"path_prefix"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// FetchTimeout returns the remote wordlist fetch timeout, falling back to 10s when unset or malformed.
func (c WordlistConfig) FetchTimeout() time.Duration {
	return parseDuration(c.Timeout, defaultWordlistTimeout)
}

// DebounceDelay returns the auto-backup coalescing delay, falling back to 2s when unset or malformed.
func (c BackupConfig) DebounceDelay() time.Duration {
	return parseDuration(c.Debounce, defaultBackupDebounce)
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
