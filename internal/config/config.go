// # internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"gradual/internal/diagnostics"
	"gradual/internal/shared/util"
)

type Config struct {
	CheckPaths []string             `toml:"check_paths"`
	Exclude    Exclude              `toml:"exclude"`
	Stubs      Stubs                `toml:"stubs"`
	Rules      diagnostics.Settings `toml:"rules"`
	Watch      Watch                `toml:"watch"`
	Output     Output               `toml:"output"`
	History    History              `toml:"history"`
	Telemetry  Telemetry            `toml:"telemetry"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Stubs struct {
	// Patterns matched against the base name to classify stub files, in
	// addition to the .pyi extension.
	Patterns []string `toml:"patterns"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MaxRunsPerMinute throttles re-analysis bursts in watch mode.
	MaxRunsPerMinute float64 `toml:"max_runs_per_minute"`
}

type Output struct {
	SARIF string `toml:"sarif"`
}

type History struct {
	Path string `toml:"path"`
}

type Telemetry struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// validate rejects patterns that could never match: exclude-file and stub
// patterns are matched against base names only.
func (cfg *Config) validate() error {
	for _, p := range cfg.Exclude.Files {
		if util.ContainsPathSeparator(p) {
			return fmt.Errorf("exclude file pattern %q must not contain a path separator", p)
		}
	}
	for _, p := range cfg.Stubs.Patterns {
		if util.ContainsPathSeparator(p) {
			return fmt.Errorf("stub pattern %q must not contain a path separator", p)
		}
	}
	return nil
}

func Default() *Config {
	cfg := &Config{
		Rules: diagnostics.DefaultSettings(),
	}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerMinute == 0 {
		cfg.Watch.MaxRunsPerMinute = 30
	}
	if len(cfg.CheckPaths) == 0 {
		cfg.CheckPaths = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "__pycache__", ".venv", "venv"}
	}
}
