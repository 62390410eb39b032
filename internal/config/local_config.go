package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig holds the subset of settings that must be known before the
// Store (and therefore the Durability Layer worker) is constructed: a
// small YAML file read directly, with explicit env-var overrides on
// top.
type LocalConfig struct {
	DryRun          bool `yaml:"dry-run"`
	UseTemporalSync bool `yaml:"use-temporal-sync"`
}

// LoadLocalConfig reads sync.local.yaml from dir, returning a default
// LocalConfig (DryRun false, UseTemporalSync true; not nil, not an error)
// if the file is absent or unparsable -- callers never need a nil check.
func LoadLocalConfig(dir string) *LocalConfig {
	path := filepath.Join(dir, "sync.local.yaml")
	data, err := os.ReadFile(path) // #nosec G304 -- path built from a caller-supplied directory, not request input
	if err != nil {
		return &LocalConfig{UseTemporalSync: true}
	}
	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{UseTemporalSync: true}
	}
	return &cfg
}

// LoadLocalConfigWithEnv applies DRY_RUN/USE_TEMPORAL_SYNC env overrides
// on top of the YAML file; env wins over file.
func LoadLocalConfigWithEnv(dir string) *LocalConfig {
	cfg := LoadLocalConfig(dir)
	if v := os.Getenv("DRY_RUN"); v != "" {
		cfg.DryRun = v == "true" || v == "1"
	}
	if v := os.Getenv("USE_TEMPORAL_SYNC"); v != "" {
		cfg.UseTemporalSync = v == "true" || v == "1"
	}
	return cfg
}
