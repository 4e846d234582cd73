package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verte-zerg/codetype/internal/catalog"
	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/session"
)

func TestParseKind(t *testing.T) {
	for _, mode := range []string{"timed", "Speed", " accuracy ", "custom"} {
		if _, err := parseKind(mode); err != nil {
			t.Fatalf("expected %q to parse, got %v", mode, err)
		}
	}
	for _, mode := range []string{"", "practice", "challenge", "marathon"} {
		if _, err := parseKind(mode); err == nil {
			t.Fatalf("expected %q to be rejected", mode)
		}
	}
}

func TestResolvePracticeDefaults(t *testing.T) {
	testLang, testDifficulty = "", ""
	testDuration, testAccuracyTarget, testBackspace = 30, 90, false

	cfg := resolvePractice(session.KindSpeed)
	if cfg.Language != "java" || cfg.Difficulty != "medium" {
		t.Fatalf("expected speed defaults, got %+v", cfg)
	}
	cfg = resolvePractice(session.KindTimed)
	if cfg.Language != "python" || cfg.Duration != 30*time.Second || cfg.TickInterval != session.DefaultTimedTick {
		t.Fatalf("unexpected timed config %+v", cfg)
	}
	if cfg.BackspaceAllowed {
		t.Fatalf("expected backspace disabled")
	}

	testLang = "sql"
	cfg = resolvePractice(session.KindAccuracy)
	if cfg.Language != "sql" || cfg.Difficulty != "easy" || cfg.AccuracyTarget != 90 {
		t.Fatalf("expected explicit language to win, got %+v", cfg)
	}
	testLang = ""
}

func TestValidatePractice(t *testing.T) {
	testLang, testDifficulty = "", ""
	testDuration, testAccuracyTarget = 0, 95
	if err := validatePractice(resolvePractice(session.KindTimed)); err == nil {
		t.Fatalf("expected duration error")
	}
	testDuration, testAccuracyTarget = 60, 101
	if err := validatePractice(resolvePractice(session.KindAccuracy)); err == nil {
		t.Fatalf("expected accuracy target error")
	}
	testAccuracyTarget = 95
	if err := validatePractice(resolvePractice(session.KindAccuracy)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyConfigFlagsWin(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var lang string
	var duration int
	cmd.Flags().StringVar(&lang, "lang", "python", "")
	cmd.Flags().IntVar(&duration, "duration", 60, "")
	if err := cmd.Flags().Set("lang", "go"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	fileLang := "java"
	fileDuration := 15
	applyStringConfig(cmd, "lang", &lang, &fileLang)
	applyIntConfig(cmd, "duration", &duration, &fileDuration)
	if lang != "go" {
		t.Fatalf("expected flag value to win, got %q", lang)
	}
	if duration != 15 {
		t.Fatalf("expected config value for unset flag, got %d", duration)
	}

	applyIntConfig(cmd, "duration", &duration, nil)
	if duration != 15 {
		t.Fatalf("nil config value must not change target, got %d", duration)
	}
}

func TestResolveStats(t *testing.T) {
	cmd := &cobra.Command{Use: "stats"}
	addStatsFlags(cmd)
	statsSince = "2024-05-01"
	last := 5
	cfg, err := resolveStats(cmd, config.StatsConfig{Last: &last})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Last != 5 || cfg.CurveWindow != defaultCurveWindow || cfg.Since == nil || cfg.Since.Day() != 1 {
		t.Fatalf("unexpected stats config %+v", cfg)
	}

	statsSince = "yesterday"
	if _, err := resolveStats(cmd, config.StatsConfig{}); err == nil {
		t.Fatalf("expected invalid --since error")
	}
	statsSince = ""
	statsLast = 0
}

func TestSelectChallenge(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	daily, err := selectChallenge(cat, nil)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily.Type != catalog.ChallengeDaily {
		t.Fatalf("expected a daily challenge, got %+v", daily)
	}
	got, err := selectChallenge(cat, []string{daily.ID})
	if err != nil || got.ID != daily.ID {
		t.Fatalf("expected lookup by id, got %+v %v", got, err)
	}
	if _, err := selectChallenge(cat, []string{"no-such-challenge"}); err == nil {
		t.Fatalf("expected unknown challenge error")
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("template must decode cleanly: %v", err)
	}

	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
			if idx := strings.Index(line, "  #"); idx >= 0 {
				line = strings.TrimRight(line[:idx], " ")
			}
		}
		lines = append(lines, line)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("uncommented template must decode: %v", err)
	}
	if cfg.Practice.Mode == nil || *cfg.Practice.Mode != "timed" {
		t.Fatalf("expected mode from template, got %+v", cfg.Practice)
	}
}

func TestChallengesCommandListsResets(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"challenges"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Daily (resets in", "Weekly (resets in", "Levels"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestFormatUntil(t *testing.T) {
	if got := formatUntil(90 * time.Minute); got != "1h 30m" {
		t.Fatalf("unexpected %q", got)
	}
	if got := formatUntil(50 * time.Hour); got != "2d 2h" {
		t.Fatalf("unexpected %q", got)
	}
	if got := formatUntil(-time.Minute); got != "0h 00m" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestLearnCommandPrintsGuide(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"learn"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Typing tips for programmers", "Finger placement", "Common code typing mistakes", "Keyboard shortcuts", "x def foo():", "x return 1", "Ctrl + Shift + P"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestLearnCommandSingleSection(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"learn", "--section", "Shortcuts"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Keyboard shortcuts") || !strings.Contains(text, "Terminal") {
		t.Fatalf("expected shortcuts section, got:\n%s", text)
	}
	if strings.Contains(text, "Typing tips") || strings.Contains(text, "Common code typing mistakes") {
		t.Fatalf("expected only shortcuts, got:\n%s", text)
	}

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"learn", "--section", "videos"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected unknown section error")
	}
}

func TestLogServeStartUsesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	serveAddr, globalDB = "127.0.0.1:9999", "/tmp/results.db"
	logServeStart(zap.New(core))

	entries := logs.FilterMessage("serving results").All()
	if len(entries) != 1 {
		t.Fatalf("expected one serving entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["addr"] != "127.0.0.1:9999" || fields["db"] != "/tmp/results.db" || fields["url"] != "http://127.0.0.1:9999" {
		t.Fatalf("unexpected fields %v", fields)
	}
}
