// Package pikuconfig models the root directory tree and global settings as a
// single value threaded through every operation, instead of reaching into
// the process environment from leaf functions (spec.md §9 "Global mutable
// state").
package pikuconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is constructed once in main() (or from a test fixture) and passed
// down through every component.
type Config struct {
	// Root is R in spec.md §2, default $HOME/.piku.
	Root string

	// AutoRestart mirrors PIKU_AUTO_RESTART (spec.md §4.5); default true.
	AutoRestart bool

	// EmperorThreadsPerCPU sets the uwsgi Emperor's thread count multiplier
	// (spec.md §4.10 "setup"); default 2.
	EmperorThreadsPerCPU int

	// DisabledRuntimes lists provider names the operator wants skipped
	// during detection (optional piku.yml override).
	DisabledRuntimes []string
}

// fileOverrides is the subset of Config loadable from piku.yml.
type fileOverrides struct {
	AutoRestart          *bool    `yaml:"auto_restart"`
	EmperorThreadsPerCPU *int     `yaml:"emperor_threads_per_cpu"`
	DisabledRuntimes     []string `yaml:"disabled_runtimes"`
}

// Default returns the built-in defaults before any env/file overrides.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Root:                 filepath.Join(home, ".piku"),
		AutoRestart:          true,
		EmperorThreadsPerCPU: 2,
	}
}

// FromEnv builds a Config from the process environment and an optional
// piku.yml found at <root>/piku.yml. This is the only place in the module
// allowed to read os.Getenv for root-level settings; everything else
// receives a Config value.
func FromEnv() (Config, error) {
	cfg := Default()

	if root := os.Getenv("PIKU_ROOT"); root != "" {
		cfg.Root = root
	}

	overridePath := filepath.Join(cfg.Root, "piku.yml")
	if data, err := os.ReadFile(overridePath); err == nil {
		var ov fileOverrides
		if err := yaml.Unmarshal(data, &ov); err != nil {
			return cfg, err
		}
		if ov.AutoRestart != nil {
			cfg.AutoRestart = *ov.AutoRestart
		}
		if ov.EmperorThreadsPerCPU != nil {
			cfg.EmperorThreadsPerCPU = *ov.EmperorThreadsPerCPU
		}
		if ov.DisabledRuntimes != nil {
			cfg.DisabledRuntimes = ov.DisabledRuntimes
		}
	}

	if v := os.Getenv("PIKU_AUTO_RESTART"); v != "" {
		cfg.AutoRestart = isTruthy(v)
	}

	return cfg, nil
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "True", "TRUE", "yes", "on":
		return true
	default:
		return false
	}
}

// --- Path derivation (spec.md §2 tree) ---

func (c Config) AppsDir() string          { return filepath.Join(c.Root, "apps") }
func (c Config) ReposDir() string         { return filepath.Join(c.Root, "repos") }
func (c Config) EnvsDir() string          { return filepath.Join(c.Root, "envs") }
func (c Config) LogsDir() string          { return filepath.Join(c.Root, "logs") }
func (c Config) UwsgiAvailableDir() string { return filepath.Join(c.Root, "uwsgi-available") }
func (c Config) UwsgiEnabledDir() string  { return filepath.Join(c.Root, "uwsgi-enabled") }
func (c Config) NginxDir() string         { return filepath.Join(c.Root, "nginx") }
func (c Config) AcmeDir() string          { return filepath.Join(c.Root, "acme") }
func (c Config) CacheDir() string         { return filepath.Join(c.Root, "cache") }
func (c Config) DataDir() string          { return filepath.Join(c.Root, "data") }
func (c Config) PluginsDir() string       { return filepath.Join(c.Root, "plugins") }

func (c Config) AppPath(app string) string    { return filepath.Join(c.AppsDir(), app) }
func (c Config) RepoPath(app string) string   { return filepath.Join(c.ReposDir(), app) }
func (c Config) EnvPath(app string) string    { return filepath.Join(c.EnvsDir(), app) }
func (c Config) LogPath(app string) string    { return filepath.Join(c.LogsDir(), app) }
func (c Config) CachePath(app string) string  { return filepath.Join(c.CacheDir(), app) }
func (c Config) DataPath(app string) string   { return filepath.Join(c.DataDir(), app) }

// EnsureTree creates the full root tree (used by "setup").
func (c Config) EnsureTree() error {
	dirs := []string{
		c.AppsDir(), c.ReposDir(), c.EnvsDir(), c.LogsDir(),
		c.UwsgiAvailableDir(), c.UwsgiEnabledDir(), c.NginxDir(),
		c.AcmeDir(), c.CacheDir(), c.DataDir(), c.PluginsDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
