package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Airtable Airtable `yaml:"airtable"`
	Gallery  Gallery  `yaml:"gallery"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Airtable configures the record source: which base, table, and view to pull,
// and which environment variable holds the API key.
type Airtable struct {
	BaseURL   string `yaml:"base_url"`
	BaseID    string `yaml:"base_id"`
	Table     string `yaml:"table"`
	View      string `yaml:"view"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Gallery configures the local image pool used when a storyteller has no
// usable profile asset. Overrides pin specific record IDs to specific images
// and win over the computed assignment.
type Gallery struct {
	Dir        string            `yaml:"dir"`
	PathPrefix string            `yaml:"path_prefix"`
	PoolSize   int               `yaml:"pool_size"`
	Overrides  map[string]string `yaml:"overrides"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for storyloom.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storyloom")
}

// DataDir returns the XDG data directory for storyloom.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storyloom")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storyloom/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'storyloom init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Airtable: Airtable{
			BaseURL:   "https://api.airtable.com",
			Table:     "Storytellers",
			View:      "Palm Island",
			APIKeyEnv: "AIRTABLE_API_KEY",
		},
		Gallery: Gallery{
			PathPrefix: "/gallery",
			PoolSize:   54,
		},
		Server:  Server{Port: 3003},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// APIKey resolves the Airtable API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Airtable.APIKeyEnv)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
