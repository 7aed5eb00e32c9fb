package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for vsched.
type Config struct {
	DataDir    string           `toml:"data_dir"`
	LogDir     string           `toml:"log_dir"`
	Store      StoreConfig      `toml:"store"`
	Publisher  PublisherConfig  `toml:"publisher"`
	Media      MediaConfig      `toml:"media"`
	Scheduling SchedulingConfig `toml:"scheduling"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// StoreConfig represents configuration for project state storage.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "filesystem", "sqlite", or "memory"

	// Filesystem-specific (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// SQLite-specific (only used when Type == "sqlite")
	Path string `toml:"path,omitempty"`
}

// PublisherConfig represents configuration for the publishing backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type PublisherConfig struct {
	Type string `toml:"type"` // "outbox", "s3", or "memory"

	// Outbox-specific fields (only used when Type == "outbox")
	OutboxDir string `toml:"outbox_dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// CredentialsPath points at the age-encrypted credentials file, if the
	// backend authenticates with stored credentials.
	CredentialsPath string `toml:"credentials_path,omitempty"`
}

// MediaConfig holds file discovery settings.
type MediaConfig struct {
	Extensions []string `toml:"extensions"`
}

// SchedulingConfig holds the default scheduling preferences applied to new
// projects and the run-level failure policy.
type SchedulingConfig struct {
	PerDay   int    `toml:"per_day"`
	DayStart string `toml:"day_start"` // local time "HH:MM"
	Timezone string `toml:"timezone"`  // IANA name
	OnError  string `toml:"on_error"`  // "halt" (default) or "continue"
}

// DaemonConfig configures unattended periodic runs. An empty cron spec
// disables the daemon.
type DaemonConfig struct {
	Cron     string   `toml:"cron,omitempty"`
	Projects []string `toml:"projects,omitempty"`
}

// NewConfig creates a Config with defaults anchored under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		DataDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "projects"),
		},
		Publisher: PublisherConfig{
			Type:      "outbox",
			OutboxDir: filepath.Join(baseDir, "outbox"),
		},
		Scheduling: SchedulingConfig{
			PerDay:   1,
			DayStart: "09:00",
			Timezone: "UTC",
			OnError:  "halt",
		},
	}
}

// Validate checks cross-field constraints that TOML decoding can't express.
func (c *Config) Validate() error {
	switch c.Scheduling.OnError {
	case "", "halt", "continue":
	default:
		return fmt.Errorf("scheduling.on_error must be \"halt\" or \"continue\", got %q", c.Scheduling.OnError)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
