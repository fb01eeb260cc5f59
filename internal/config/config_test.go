// # internal/config/config_test.go
package config

import (
	"os"
	"testing"
	"time"

	"gradual/internal/diagnostics"
)

func TestLoad(t *testing.T) {
	content := `
check_paths = ["./src"]

[exclude]
dirs = [".git"]
files = ["*.gen.py"]

[stubs]
patterns = ["vendored_*.py"]

[rules]
report_unused_import = "error"
report_private_usage = "none"

[watch]
debounce = "1s"
max_runs_per_minute = 12

[output]
sarif = "gradual.sarif"

[history]
path = "gradual-history.db"

[telemetry]
metrics_addr = ":9185"
`
	tmpfile, err := os.CreateTemp("", "config*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.CheckPaths) != 1 || cfg.CheckPaths[0] != "./src" {
		t.Errorf("Unexpected CheckPaths: %v", cfg.CheckPaths)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxRunsPerMinute != 12 {
		t.Errorf("Expected max_runs_per_minute 12, got %v", cfg.Watch.MaxRunsPerMinute)
	}
	if cfg.Rules.UnusedImport != diagnostics.SeverityError {
		t.Errorf("Expected unused-import error, got %s", cfg.Rules.UnusedImport)
	}
	if cfg.Rules.PrivateUsage != diagnostics.SeverityNone {
		t.Errorf("Expected private-usage none, got %s", cfg.Rules.PrivateUsage)
	}
	if cfg.Output.SARIF != "gradual.sarif" {
		t.Errorf("Expected SARIF gradual.sarif, got %s", cfg.Output.SARIF)
	}
	if cfg.History.Path != "gradual-history.db" {
		t.Errorf("Expected history path, got %s", cfg.History.Path)
	}
	if cfg.Telemetry.MetricsAddr != ":9185" {
		t.Errorf("Expected metrics addr :9185, got %s", cfg.Telemetry.MetricsAddr)
	}
}

func TestLoadDefaults(t *testing.T) {
	content := `check_paths = ["./x"]`
	tmpfile, err := os.CreateTemp("", "config*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	tmpfile.Write([]byte(content))
	tmpfile.Close()

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Rules.UnusedImport != diagnostics.SeverityWarning {
		t.Errorf("Expected default unused-import warning, got %s", cfg.Rules.UnusedImport)
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("Expected default exclude dirs")
	}
}

func TestLoadRejectsPathSeparatorPatterns(t *testing.T) {
	content := `
[exclude]
files = ["generated/*.py"]
`
	tmpfile, err := os.CreateTemp("", "config*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())
	tmpfile.Write([]byte(content))
	tmpfile.Close()

	if _, err := Load(tmpfile.Name()); err == nil {
		t.Error("Expected error for pattern with path separator")
	}
}

func TestLoadError(t *testing.T) {
	_, err := Load("nonexistent.toml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}

	tmpfile, _ := os.CreateTemp("", "badconfig*.toml")
	defer os.Remove(tmpfile.Name())
	tmpfile.Write([]byte("bad = toml = format"))
	tmpfile.Close()

	_, err = Load(tmpfile.Name())
	if err == nil {
		t.Error("Expected error for malformed TOML")
	}
}
