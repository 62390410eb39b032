// Package config binds the recognized environment variables onto a
// github.com/spf13/viper instance, the process-wide settings surface.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved configuration surface for one process run.
type Config struct {
	v *viper.Viper
}

// defaults holds the documented default for every recognized option.
var defaults = map[string]interface{}{
	"sync_interval_ms":          30000,
	"skip_empty_projects":       false,
	"incremental_sync":          true,
	"parallel_sync":             false,
	"max_workers":               4,
	"dry_run":                   false,
	"huly_api_url":              "",
	"vibe_api_url":              "",
	"beads_operation_delay_ms":  0,
	"use_temporal_sync":         true,
	"docs_subdir":               "docs",
}

// Load builds a Config from the process environment. Env vars are bound
// explicitly.
func Load() *Config {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	bind := func(key, env string) { _ = v.BindEnv(key, env) }
	bind("sync_interval_ms", "SYNC_INTERVAL")
	bind("skip_empty_projects", "SKIP_EMPTY_PROJECTS")
	bind("incremental_sync", "INCREMENTAL_SYNC")
	bind("parallel_sync", "PARALLEL_SYNC")
	bind("max_workers", "MAX_WORKERS")
	bind("dry_run", "DRY_RUN")
	bind("huly_api_url", "HULY_API_URL")
	bind("vibe_api_url", "VIBE_API_URL")
	bind("beads_operation_delay_ms", "BEADS_OPERATION_DELAY_MS")
	bind("use_temporal_sync", "USE_TEMPORAL_SYNC")
	bind("docs_subdir", "DOCS_SUBDIR")

	return &Config{v: v}
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.v.GetInt("sync_interval_ms")) * time.Millisecond
}
func (c *Config) SkipEmptyProjects() bool    { return c.v.GetBool("skip_empty_projects") }
func (c *Config) IncrementalSync() bool      { return c.v.GetBool("incremental_sync") }
func (c *Config) ParallelSync() bool         { return c.v.GetBool("parallel_sync") }
func (c *Config) MaxWorkers() int            { return c.v.GetInt("max_workers") }
func (c *Config) DryRun() bool               { return c.v.GetBool("dry_run") }
func (c *Config) HulyAPIURL() string         { return strings.TrimRight(c.v.GetString("huly_api_url"), "/") }
func (c *Config) VibeAPIURL() string         { return strings.TrimRight(c.v.GetString("vibe_api_url"), "/") }
func (c *Config) BeadsOperationDelay() time.Duration {
	return time.Duration(c.v.GetInt("beads_operation_delay_ms")) * time.Millisecond
}
func (c *Config) UseTemporalSync() bool { return c.v.GetBool("use_temporal_sync") }

// DocsSubdir names the subdirectory (relative to each project's
// filesystem root) that the documentation watcher observes.
func (c *Config) DocsSubdir() string { return c.v.GetString("docs_subdir") }
