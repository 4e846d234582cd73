package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Practice.Lang != nil || cfg.Server.Addr != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[practice]
lang = "java"
difficulty = "hard"
mode = "timed"
duration = 30
accuracy-target = 90
backspace = false

[stats]
last = 50

[server]
addr = ":9000"
cors-origins = ["http://localhost:5173"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Practice.Lang == nil || *cfg.Practice.Lang != "java" {
		t.Fatalf("expected lang java, got %v", cfg.Practice.Lang)
	}
	if cfg.Practice.Duration == nil || *cfg.Practice.Duration != 30 {
		t.Fatalf("expected duration 30, got %v", cfg.Practice.Duration)
	}
	if cfg.Practice.Backspace == nil || *cfg.Practice.Backspace {
		t.Fatalf("expected backspace false, got %v", cfg.Practice.Backspace)
	}
	if cfg.Stats.Last == nil || *cfg.Stats.Last != 50 {
		t.Fatalf("expected last 50, got %v", cfg.Stats.Last)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[practice]\nwords = 25\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	lang := "python"
	cfg := FileConfig{Practice: PracticeConfig{Lang: &lang}}
	env := map[string]string{
		"CODETYPE_LANG":         "sql",
		"CODETYPE_DURATION":     "120",
		"CODETYPE_BACKSPACE":    "false",
		"CODETYPE_REMOTE":       " http://localhost:8080 ",
		"CODETYPE_CORS_ORIGINS": "a, b,,",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if *cfg.Practice.Lang != "sql" {
		t.Fatalf("expected env lang, got %s", *cfg.Practice.Lang)
	}
	if *cfg.Practice.Duration != 120 {
		t.Fatalf("expected duration 120, got %d", *cfg.Practice.Duration)
	}
	if *cfg.Practice.Backspace {
		t.Fatalf("expected backspace disabled")
	}
	if *cfg.Server.Remote != "http://localhost:8080" {
		t.Fatalf("expected trimmed remote, got %q", *cfg.Server.Remote)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Practice.Difficulty != nil {
		t.Fatalf("unset variables must not apply")
	}
}

func TestApplyEnvRejectsBadNumber(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "CODETYPE_DURATION" {
			return "soon", true
		}
		return "", false
	}
	var cfg FileConfig
	if err := ApplyEnv(&cfg, lookup); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	if err := os.WriteFile(first, []byte("CODETYPE_TEST_MODE=timed\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := os.WriteFile(second, []byte("CODETYPE_TEST_MODE=speed\nCODETYPE_TEST_LANG=c\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CODETYPE_TEST_MODE", "")
	os.Unsetenv("CODETYPE_TEST_MODE")
	t.Setenv("CODETYPE_TEST_LANG", "")
	os.Unsetenv("CODETYPE_TEST_LANG")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), first, second); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("CODETYPE_TEST_MODE"); got != "timed" {
		t.Fatalf("expected first file to win, got %q", got)
	}
	if got := os.Getenv("CODETYPE_TEST_LANG"); got != "c" {
		t.Fatalf("expected value from second file, got %q", got)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "codetype", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "codetype", "codetype.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}
