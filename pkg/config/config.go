package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Resource names an upstream endpoint to sync and the query field used for
// its incremental cursor.
type Resource struct {
	Name       string `yaml:"name"`
	SinceField string `yaml:"since_field"`
}

// Config holds the file-backed settings. Credentials and connection strings
// come from the environment, not from here.
type Config struct {
	APIBaseURL          string     `yaml:"api_base_url"`
	Resources           []Resource `yaml:"resources"`
	SynthesizeNeedIDs   []int      `yaml:"synthesize_need_ids"`
	FreshShiftData      bool       `yaml:"fresh_shift_data"`
	SyncIntervalMinutes int        `yaml:"sync_interval_minutes"`
}

// Default returns the configuration used when no config file exists. The
// synthesize list ships with the one upstream need known to publish hours
// without a shifts array.
func Default() *Config {
	return &Config{
		APIBaseURL: "https://api.galaxydigital.com/api",
		Resources: []Resource{
			{Name: "needs", SinceField: "since_updated"},
			{Name: "responses", SinceField: "since_updated"},
			{Name: "hours", SinceField: "since_updated"},
		},
		SynthesizeNeedIDs:   []int{800197},
		SyncIntervalMinutes: 60,
	}
}

// Load reads the YAML config at path, falling back to defaults when the file
// is missing. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("config file not found, using defaults")
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = Default().APIBaseURL
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = Default().Resources
	}
	return cfg, nil
}

// Getenv returns the environment value or a default.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
