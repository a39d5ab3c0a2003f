package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Source      SourceConfig      `toml:"source"`
	Destination DestinationConfig `toml:"destination"`
	Database    DatabaseConfig    `toml:"database"`
	Migration   MigrationConfig   `toml:"migration"`
	Duplicates  DuplicatesConfig  `toml:"duplicates"`
	Inventory   InventoryConfig   `toml:"inventory"`
}

// SourceConfig contains MapMyRun export settings.
type SourceConfig struct {
	BaseURL        string  `toml:"base_url"`
	Cookie         string  `toml:"cookie"`
	ArtifactDir    string  `toml:"artifact_dir"`
	RequestsPerSec float64 `toml:"requests_per_sec"`
	MaxAttempts    int     `toml:"max_attempts"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// DestinationConfig contains Strava API credentials and endpoints.
type DestinationConfig struct {
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenPath    string `toml:"token_path"`
	CallbackPort int    `toml:"callback_port"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// MigrationConfig contains engine pacing and batching settings.
type MigrationConfig struct {
	BatchSize          int `toml:"batch_size"`
	BatchPauseSeconds  int `toml:"batch_pause_seconds"`
	UploadPauseSeconds int `toml:"upload_pause_seconds"`
	PollTimeoutSeconds int `toml:"poll_timeout_seconds"`
	CooldownMinutes    int `toml:"cooldown_minutes"`
}

// DuplicatesConfig contains the tolerances for proactive duplicate matching.
//
// The defaults mirror values tuned against real MapMyRun/Strava data; they are
// configuration precisely because they do not derive from any formula and may
// not generalize to other accounts.
type DuplicatesConfig struct {
	WindowHours          int     `toml:"window_hours"`
	DurationToleranceSec float64 `toml:"duration_tolerance_sec"`
	DistanceToleranceM   float64 `toml:"distance_tolerance_m"`
}

// InventoryConfig contains the workout history CSV location.
type InventoryConfig struct {
	CSVPath string `toml:"csv_path"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
