package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Targets   TargetsConfig   `yaml:"targets"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	PastTrack PastTrackConfig `yaml:"past_track"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string   `yaml:"address" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Trace    bool        `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path" validate:"required"`
	Level string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// DBConfig holds archive database settings.
type DBConfig struct {
	Path      string   `yaml:"path" validate:"required"`
	Retention Duration `yaml:"retention" validate:"gte=0"`
	ImportCSV string   `yaml:"import_csv"`
}

// TargetsConfig holds settings for the live vessel registry.
type TargetsConfig struct {
	TTL        Duration `yaml:"ttl" validate:"gt=0"`
	PruneEvery Duration `yaml:"prune_every" validate:"gt=0"`
}

// ClusterConfig holds defaults for spatial clustering requests.
type ClusterConfig struct {
	Limit   int     `yaml:"limit" validate:"gt=0"`
	Size    float64 `yaml:"size" validate:"gt=0,lte=180"`
	Workers int     `yaml:"workers" validate:"gte=0"`
}

// PastTrackConfig holds settings for past track reconstruction.
type PastTrackConfig struct {
	TimeBack  Duration `yaml:"time_back" validate:"gt=0"`
	MinDist   Distance `yaml:"min_dist" validate:"gte=0"`
	Freshness Duration `yaml:"freshness" validate:"gt=0"`
	CacheSize int      `yaml:"cache_size" validate:"gt=0"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "localhost:8090",
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:      "./data/aisview.db",
			Retention: Duration(2 * Day),
		},
		Targets: TargetsConfig{
			TTL:        Duration(time.Hour),
			PruneEvery: Duration(5 * time.Minute),
		},
		Cluster: ClusterConfig{
			Limit: 10,
			Size:  4.0,
		},
		PastTrack: PastTrackConfig{
			TimeBack:  Duration(12 * time.Hour),
			MinDist:   Distance(500),
			Freshness: Duration(2 * time.Minute),
			CacheSize: 10000,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		if addr := os.Getenv("AISVIEW_ADDRESS"); addr != "" {
			cfg.Server.Address = addr
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# aisview Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m or min, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), cbl (cables)

`)
	data = append(header, data...)

	// Inject comments above keys whose meaning is not obvious from the name.
	reSize := regexp.MustCompile(`(?m)^(\s+)size:`)
	data = reSize.ReplaceAll(data, []byte("${1}# Grid cell size in degrees\n${1}size:"))

	reWorkers := regexp.MustCompile(`(?m)^(\s+)workers:`)
	data = reWorkers.ReplaceAll(data, []byte("${1}# 0 uses one worker per CPU\n${1}workers:"))

	reFresh := regexp.MustCompile(`(?m)^(\s+)freshness:`)
	data = reFresh.ReplaceAll(data, []byte("${1}# Cached tracks newer than this are served without querying the archive\n${1}freshness:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
