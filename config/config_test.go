package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Store.Driver != "memory" || cfg.Parser.MaxYear != 2024 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
store:
  driver: sqlite
  dsn: /var/lib/cdr/cdr.db
parser:
  timezoneOffsetHours: 5.5
  serialShiftHours: 0
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 || cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "/var/lib/cdr/cdr.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Server.MaxUploadMB != 50 || cfg.Parser.MinYear != 2010 {
		t.Errorf("unset keys lost their defaults: %+v", cfg)
	}
	if cfg.SerialShift() != 0 {
		t.Errorf("serial shift = %v", cfg.SerialShift())
	}
	ts := time.Date(2023, 5, 1, 10, 0, 0, 0, cfg.Location())
	if _, off := ts.Zone(); off != 5*3600+1800 {
		t.Errorf("offset = %d", off)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"sqlite without dsn": "store:\n  driver: sqlite\n",
		"unknown driver":     "store:\n  driver: postgres\n",
		"bad port":           "server:\n  port: 70000\n",
		"no upload room":     "server:\n  maxUploadMB: 0\n",
		"inverted years":     "parser:\n  minYear: 2024\n  maxYear: 2010\n",
		"not yaml":           "server: [unclosed\n",
	}
	for name, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()
	if got := cfg.MaxUploadBytes(); got != 50<<20 {
		t.Errorf("max upload = %d", got)
	}
	if got := cfg.SerialShift(); got != 5*time.Hour {
		t.Errorf("serial shift = %v", got)
	}
	if name := cfg.Location().String(); !strings.HasPrefix(name, "UTC+5") {
		t.Errorf("location = %q", name)
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	if Path() != "config.yaml" {
		t.Errorf("default path = %q", Path())
	}
	t.Setenv("CONFIG_PATH", "/etc/cdr-insight/config.yaml")
	if Path() != "/etc/cdr-insight/config.yaml" {
		t.Errorf("env path = %q", Path())
	}
}

func TestLogging(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: WARN\n  basePath: /var/log/cdr\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("level = %v", cfg.LogLevel())
	}
	if got := cfg.LogFile(); got != filepath.Join("/var/log/cdr", "cdr-insight.log") {
		t.Errorf("log file = %q", got)
	}
	if Default().LogFile() != "" || Default().LogLevel() != slog.LevelInfo {
		t.Errorf("default logging = %q %v", Default().LogFile(), Default().LogLevel())
	}

	if _, err := Load(writeConfig(t, "logging:\n  level: verbose\n")); err == nil {
		t.Error("unknown level accepted")
	}
}
